package layout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/msantos/unpacker/walker"
)

type options struct {
	name  string
	strip string
	notes map[string]string
}

// Option configures the reflection bridge.
type Option func(*options)

// WithName sets the table name. Default: the lower cased type name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithStripPrefix sets the prefix removed from names in the decode
// expression.
func WithStripPrefix(prefix string) Option {
	return func(o *options) {
		o.strip = prefix
	}
}

// WithNote attaches a comment to the row of a field.
func WithNote(field, note string) Option {
	return func(o *options) {
		if o.notes == nil {
			o.notes = make(map[string]string)
		}
		o.notes[field] = note
	}
}

// timeKinds maps struct types with a seconds/fraction layout to their
// kind. Populated per platform.
var timeKinds = map[reflect.Type]walker.Kind{}

// FromStruct builds a table from the memory layout of a Go struct.
//
// Field names are lower cased unless a `layout:"name"` tag is given. A
// tag of `layout:"name,kind"` also overrides the kind. Blank fields are
// skipped and show up as padding.
func FromStruct(v any, opts ...Option) (walker.Layout, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return walker.Layout{}, fmt.Errorf("%w: %T", ErrNotStruct, v)
	}

	name := o.name
	if name == "" {
		name = strings.ToLower(t.Name())
	}

	l := walker.Layout{
		Name:        name,
		Size:        int(t.Size()),
		StripPrefix: o.strip,
	}

	fields, err := flatten(t, 0, "", true)
	if err != nil {
		return walker.Layout{}, fmt.Errorf("%s: %w", name, err)
	}
	for i := range fields {
		if note, ok := o.notes[fields[i].Name]; ok {
			fields[i].Note = note
		}
	}
	l.Fields = fields

	return l, nil
}

func flatten(t reflect.Type, base uintptr, prefix string, outer bool) ([]walker.Field, error) {
	var fields []walker.Field

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Name == "_" {
			continue
		}

		name, kind, tagged, err := fieldTag(sf)
		if err != nil {
			return nil, err
		}
		name = prefix + name

		ft := sf.Type
		f := walker.Field{
			Offset: int(base + sf.Offset),
			Size:   int(ft.Size()),
			Name:   name,
		}
		last := outer && i == t.NumField()-1

		switch {
		case tagged:
			f.Kind = kind
			if ft.Kind() == reflect.Array && kind != walker.Blob && ft.Len() > 0 {
				f.ElemSize = int(ft.Elem().Size())
			}

		case ft.Kind() == reflect.Struct:
			if k, ok := timeKinds[ft]; ok {
				f.Kind = k
				break
			}
			nested, err := flatten(ft, base+sf.Offset, name+".", false)
			if err != nil {
				return nil, err
			}
			fields = append(fields, nested...)
			continue

		case ft.Kind() == reflect.Array:
			elem := ft.Elem()
			if ft.Len() == 0 {
				if !last {
					continue
				}
				f.Flexible = true
			}
			f.ElemSize = int(elem.Size())
			if k, ok := timeKinds[elem]; ok {
				f.Kind = k
				break
			}
			switch elem.Kind() {
			case reflect.Uint8, reflect.Int8, reflect.Struct, reflect.Array:
				f.Kind = walker.Blob
				f.ElemSize = 0
				if f.Flexible {
					f.ElemSize = 1
				}
			default:
				k, err := scalar(elem)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				f.Kind = k
			}

		default:
			k, err := scalar(ft)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			f.Kind = k
		}

		fields = append(fields, f)
	}

	return fields, nil
}

func fieldTag(sf reflect.StructField) (name string, kind walker.Kind, tagged bool, err error) {
	name = strings.ToLower(sf.Name)

	tag, ok := sf.Tag.Lookup("layout")
	if !ok {
		return name, 0, false, nil
	}

	n, k, hasKind := strings.Cut(tag, ",")
	if n != "" {
		name = n
	}
	if !hasKind {
		return name, 0, false, nil
	}

	kind, err = walker.ParseKind(k)
	if err != nil {
		return "", 0, false, fmt.Errorf("%s: %w", sf.Name, err)
	}
	return name, kind, true, nil
}

func scalar(t reflect.Type) (walker.Kind, error) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return walker.Signed, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Bool:
		return walker.Unsigned, nil
	case reflect.Uintptr, reflect.Pointer, reflect.UnsafePointer:
		return walker.Pointer, nil
	case reflect.Float32, reflect.Float64:
		return walker.Float, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, t)
}
