package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cilium/ebpf/btf"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/msantos/unpacker/walker"
)

// DefaultCacheSize is the number of converted BTF layouts kept.
const DefaultCacheSize = 128

// Kernel converts BTF type information to tables.
type Kernel struct {
	spec  *btf.Spec
	cache *lru.Cache

	file string
	size int
}

// KernelOption configures a Kernel.
type KernelOption func(*Kernel)

// WithBTFFile loads type information from an ELF or raw BTF file instead
// of the running kernel.
func WithBTFFile(path string) KernelOption {
	return func(k *Kernel) {
		k.file = path
	}
}

// WithCacheSize sets the number of cached layouts.
func WithCacheSize(n int) KernelOption {
	return func(k *Kernel) {
		if n > 0 {
			k.size = n
		}
	}
}

// NewKernel loads BTF type information.
func NewKernel(opts ...KernelOption) (*Kernel, error) {
	k := &Kernel{size: DefaultCacheSize}
	for _, opt := range opts {
		opt(k)
	}

	var err error
	if k.file != "" {
		k.spec, err = btf.LoadSpec(k.file)
	} else {
		k.spec, err = btf.LoadKernelSpec()
	}
	if err != nil {
		return nil, fmt.Errorf("btf: %w", err)
	}

	k.cache, err = lru.New(k.size)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// Layout returns the table for a struct or union type.
func (k *Kernel) Layout(name string) (walker.Layout, error) {
	if v, ok := k.cache.Get(name); ok {
		return clone(v.(walker.Layout)), nil
	}

	typ, err := k.spec.AnyTypeByName(name)
	if errors.Is(err, btf.ErrNotFound) {
		return walker.Layout{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return walker.Layout{}, fmt.Errorf("%s: %w", name, err)
	}

	l, err := FromBTF(typ)
	if err != nil {
		return walker.Layout{}, err
	}

	Logger().Debug("btf",
		zap.String("name", name),
		zap.Int("size", l.Size),
		zap.Int("fields", len(l.Fields)),
	)
	k.cache.Add(name, l)
	return clone(l), nil
}

func clone(l walker.Layout) walker.Layout {
	l.Fields = append([]walker.Field(nil), l.Fields...)
	return l
}

// FromBTF converts a BTF struct or union. Typedefs are resolved.
func FromBTF(typ btf.Type) (walker.Layout, error) {
	name := typ.TypeName()

	var members []btf.Member
	var size uint32
	union := false
	switch t := btf.UnderlyingType(typ).(type) {
	case *btf.Struct:
		members, size = t.Members, t.Size
	case *btf.Union:
		members, size, union = t.Members, t.Size, true
	default:
		return walker.Layout{}, fmt.Errorf("%w: %s: %s", ErrNotStruct, name, typ)
	}

	l := walker.Layout{Name: name, Size: int(size), Overlap: union}
	c := &converter{}
	if err := c.members(members, 0, ""); err != nil {
		return walker.Layout{}, fmt.Errorf("%s: %w", name, err)
	}
	l.Fields = c.fields
	return l, nil
}

type converter struct {
	fields []walker.Field
	anon   int
	bits   *walker.Field // open bitfield storage unit
	unit   int
}

func (c *converter) members(members []btf.Member, base int, prefix string) error {
	for i, m := range members {
		if m.BitfieldSize > 0 {
			if err := c.bitfield(m, base, prefix); err != nil {
				return err
			}
			continue
		}
		c.flush()

		off := base + int(m.Offset.Bytes())
		under := btf.UnderlyingType(m.Type)

		if m.Name == "" {
			if s, ok := under.(*btf.Struct); ok {
				if err := c.members(s.Members, off, prefix); err != nil {
					return err
				}
				continue
			}
			c.anon++
			m.Name = fmt.Sprintf("__anon%d", c.anon)
		}

		f, err := member(prefix+m.Name, off, under, i == len(members)-1 && prefix == "")
		if err != nil {
			return err
		}
		c.fields = append(c.fields, f)
	}
	c.flush()
	return nil
}

// bitfield groups consecutive bitfields sharing a storage unit into one
// field.
func (c *converter) bitfield(m btf.Member, base int, prefix string) error {
	sz, err := btf.Sizeof(m.Type)
	if err != nil {
		return fmt.Errorf("%s: %w", m.Name, err)
	}
	if sz <= 0 {
		sz = 1
	}

	bitoff := int(m.Offset)
	unit := base + (bitoff/(sz*8))*sz
	desc := fmt.Sprintf("%s:%d", m.Name, m.BitfieldSize)

	if c.bits != nil && c.unit == unit && c.bits.Size == sz {
		c.bits.Note += ", " + desc
		return nil
	}
	c.flush()

	name := m.Name
	if name == "" {
		c.anon++
		name = fmt.Sprintf("__anon%d", c.anon)
	}
	c.bits = &walker.Field{
		Offset: unit,
		Size:   sz,
		Kind:   walker.Unsigned,
		Name:   prefix + name,
		Note:   "/* " + desc,
	}
	c.unit = unit
	return nil
}

func (c *converter) flush() {
	if c.bits == nil {
		return
	}
	c.bits.Note += " */"
	c.fields = append(c.fields, *c.bits)
	c.bits = nil
}

var btfTimeKinds = map[string]walker.Kind{
	"timespec":              walker.Timespec,
	"timespec64":            walker.Timespec,
	"__kernel_timespec":     walker.Timespec,
	"old_timespec32":        walker.Timespec,
	"timeval":               walker.Timeval,
	"__kernel_old_timeval":  walker.Timeval,
	"__kernel_sock_timeval": walker.Timeval,
}

func member(name string, off int, typ btf.Type, last bool) (walker.Field, error) {
	f := walker.Field{Offset: off, Name: name}

	size, err := btf.Sizeof(typ)
	if err != nil {
		return f, fmt.Errorf("%s: %w", name, err)
	}
	f.Size = size

	switch t := typ.(type) {
	case *btf.Int:
		f.Kind = walker.Unsigned
		if t.Encoding&btf.Signed != 0 {
			f.Kind = walker.Signed
		}
	case *btf.Enum:
		f.Kind = walker.Unsigned
		if t.Signed {
			f.Kind = walker.Signed
		}
	case *btf.Float:
		f.Kind = walker.Float
	case *btf.Pointer:
		f.Kind = walker.Pointer
	case *btf.Struct, *btf.Union:
		if k, ok := btfTimeKinds[typ.TypeName()]; ok {
			f.Kind = k
			break
		}
		f.Kind = walker.Blob
		if n := typ.TypeName(); n != "" {
			f.Note = "/* " + aggregate(typ) + " " + n + " */"
		}
	case *btf.Array:
		return array(f, t, last)
	default:
		return f, fmt.Errorf("%w: %s: %s", ErrUnsupported, name, typ)
	}
	return f, nil
}

func array(f walker.Field, a *btf.Array, last bool) (walker.Field, error) {
	elem := btf.UnderlyingType(a.Type)
	esz, err := btf.Sizeof(elem)
	if err != nil {
		return f, fmt.Errorf("%s: %w", f.Name, err)
	}

	if a.Nelems == 0 {
		if !last {
			return f, fmt.Errorf("%w: %s: zero length array is not last", ErrUnsupported, f.Name)
		}
		f.Flexible = true
	}
	f.ElemSize = esz

	e, err := member(f.Name, f.Offset, elem, false)
	if err != nil {
		return f, err
	}
	switch {
	case e.Kind.IsTime():
		f.Kind = e.Kind
	case e.Kind == walker.Blob, esz == 1:
		f.Kind = walker.Blob
		if !f.Flexible {
			f.ElemSize = 0
		}
	default:
		f.Kind = e.Kind
	}
	return f, nil
}

func aggregate(typ btf.Type) string {
	if _, ok := typ.(*btf.Union); ok {
		return "union"
	}
	return "struct"
}

// Names returns the names of the struct and union types in the BTF
// spec beginning with prefix.
func (k *Kernel) Names(prefix string) []string {
	var names []string
	iter := k.spec.Iterate()
	for iter.Next() {
		switch iter.Type.(type) {
		case *btf.Struct, *btf.Union:
		default:
			continue
		}
		if n := iter.Type.TypeName(); n != "" && strings.HasPrefix(n, prefix) {
			names = append(names, n)
		}
	}
	return names
}
