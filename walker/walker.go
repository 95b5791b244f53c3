// Package walker prints the byte layout of a record and derives a decode
// descriptor for it.
//
// A walk is a single pass over a list of field descriptors:
//
//	w := walker.Start("timex", 208)
//	w.Field(walker.Field{Offset: 0, Size: 4, Name: "modes"})
//	...
//	report, err := w.End()
//
// Each field prints a row with its offset, size and descriptor. Unused
// bytes between fields, and after the last field, are reported as padding
// gaps and encoded as skips in the descriptor. End prints the decode
// expression for the whole record.
package walker

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/msantos/unpacker/sxbuf"
	"github.com/msantos/unpacker/unpack"
)

// DefaultWrap is the column at which the field name list is wrapped.
const DefaultWrap = 72

var (
	// ErrOverlap is returned when a field starts before the end of the
	// previous field.
	ErrOverlap = errors.New("field overlaps previous field")

	// ErrOverrun is returned when the fields extend past the record size.
	ErrOverrun = errors.New("fields overrun record size")

	// ErrEnded is returned for calls on a finished walk.
	ErrEnded = errors.New("walk has ended")

	// ErrField is returned for negative offsets or sizes.
	ErrField = errors.New("invalid field")

	// ErrKind is returned for an unknown kind name.
	ErrKind = errors.New("unknown kind")
)

// Field describes one member of a record.
type Field struct {
	Offset   int
	Size     int
	ElemSize int // element size for arrays; 0 if not an array
	Kind     Kind
	Name     string
	Note     string
	Flexible bool // variable length trailing array
}

// Layout is a complete record description.
type Layout struct {
	Name        string
	Size        int
	StripPrefix string
	Overlap     bool // members share storage, as in a union
	Fields      []Field
}

// Walker holds the state of one walk.
type Walker struct {
	out          io.Writer
	name         string
	size         int
	strip        string
	wrap         int
	allowOverlap bool
	env          string

	prev   int
	format *sxbuf.Buffer
	names  *sxbuf.Buffer
	extra  *sxbuf.Buffer
	width  int
	ended  bool
	tail   bool // last field is flexible

	report *Report
}

// Option configures a walk.
type Option func(*Walker)

// WithOutput sets the destination of the report. Default: stdout.
func WithOutput(w io.Writer) Option {
	return func(wk *Walker) {
		wk.out = w
	}
}

// WithStripPrefix removes a common prefix from field names in the
// decode expression.
func WithStripPrefix(prefix string) Option {
	return func(wk *Walker) {
		wk.strip = prefix
	}
}

// WithWrap sets the column at which the field name list wraps.
func WithWrap(n int) Option {
	return func(wk *Walker) {
		if n > 0 {
			wk.wrap = n
		}
	}
}

// WithAllowOverlap accepts fields declared out of offset order. The
// overlap is encoded as a backward skip.
func WithAllowOverlap(b bool) Option {
	return func(wk *Walker) {
		wk.allowOverlap = b
	}
}

// WithBuildEnv appends a build environment comment to the decode
// expression.
func WithBuildEnv(env string) Option {
	return func(wk *Walker) {
		wk.env = env
	}
}

// Start begins a walk over a record of size bytes and prints the header.
func Start(name string, size int, opts ...Option) *Walker {
	w := &Walker{
		out:    os.Stdout,
		name:   name,
		size:   size,
		wrap:   DefaultWrap,
		format: sxbuf.New(),
		names:  sxbuf.New(),
		extra:  sxbuf.New(),
		report: &Report{Name: name, Size: size},
	}

	for _, opt := range opts {
		opt(w)
	}

	fmt.Fprintf(w.out, "%6d %s {\n", size, name)
	return w
}

// Walk runs a complete walk over the layout.
func Walk(l Layout, opts ...Option) (*Report, error) {
	opts = append([]Option{
		WithStripPrefix(l.StripPrefix),
		WithAllowOverlap(l.Overlap),
	}, opts...)

	w := Start(l.Name, l.Size, opts...)
	for _, f := range l.Fields {
		if err := w.Field(f); err != nil {
			w.release()
			return nil, fmt.Errorf("%s: %w", l.Name, err)
		}
	}

	r, err := w.End()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Name, err)
	}
	return r, nil
}

// Field adds the next member of the record.
func (w *Walker) Field(f Field) error {
	if w.ended {
		return ErrEnded
	}
	if f.Offset < 0 || f.Size < 0 || f.ElemSize < 0 {
		return fmt.Errorf("%w: %s: offset=%d size=%d elem=%d",
			ErrField, f.Name, f.Offset, f.Size, f.ElemSize)
	}

	if d := f.Offset - w.prev; d != 0 {
		if d < 0 && !w.allowOverlap {
			return fmt.Errorf("%w: %s at %d, previous field ends at %d",
				ErrOverlap, f.Name, f.Offset, w.prev)
		}
		w.gap(d)
	}

	desc, columns := w.describe(f)
	w.format.WriteString(desc)

	name := strings.TrimPrefix(f.Name, w.strip)

	note := ""
	if f.Note != "" {
		note = "  " + f.Note
	}
	fmt.Fprintf(w.out, "%3d %2d   %-6s  %s%s\n", f.Offset, f.Size, desc, name, note)

	for _, c := range columns {
		w.addName(c.Name)
	}
	w.report.Columns = append(w.report.Columns, columns...)
	w.report.Fields = append(w.report.Fields, f)

	Logger().Debug("field",
		zap.String("record", w.name),
		zap.String("name", f.Name),
		zap.Int("offset", f.Offset),
		zap.Int("size", f.Size),
		zap.String("descriptor", desc),
	)

	w.prev = f.Offset + f.Size
	w.tail = f.Flexible
	return nil
}

// End reports trailing padding, prints the decode expression and
// releases the walk's buffers.
func (w *Walker) End() (*Report, error) {
	if w.ended {
		return nil, ErrEnded
	}
	defer w.release()

	// A flexible array absorbs the padding after it.
	if d := w.size - w.prev; d != 0 && (d < 0 || !w.tail) {
		if d < 0 && !w.allowOverlap {
			return nil, fmt.Errorf("%w: fields end at %d, size is %d",
				ErrOverrun, w.prev, w.size)
		}
		w.gap(d)
	}
	fmt.Fprintf(w.out, "%6d }\n", w.size)

	r := w.report
	r.Format = string(w.format.Take())
	if w.extra.Len() > 0 {
		r.Extra = strings.Split(strings.TrimSuffix(w.extra.String(), "\n"), "\n")
	}

	fmt.Fprintf(w.out, "%s = decode('%s', raw)  # %s (%d bytes)\n",
		w.names.Peek(), r.Format, r.Name, r.Size)
	if w.extra.Len() > 0 {
		fmt.Fprintf(w.out, "%s", w.extra.Peek())
	}
	if w.env != "" {
		fmt.Fprintf(w.out, "# Build Env:%s\n", w.env)
	}

	return r, nil
}

func (w *Walker) release() {
	w.ended = true
	w.format.Destroy()
	w.names.Destroy()
	w.extra.Destroy()
}

func (w *Walker) gap(d int) {
	skip := unpack.Skip(d)
	fmt.Fprintf(w.out, "   %+3d   %s\n", d, skip)
	w.format.WriteString(skip)
	w.report.Gaps = append(w.report.Gaps, Gap{Offset: w.prev, Size: d})
}

// describe returns the field's descriptor and the decoded columns.
func (w *Walker) describe(f Field) (string, []Column) {
	name := strings.TrimPrefix(f.Name, w.strip)

	elem := f.ElemSize
	if elem == 0 {
		elem = f.Size
	}
	kind := f.Kind
	if kind == Blob {
		elem = 1
	}
	if kind.IsTime() && (elem < 2 || elem > 16 || elem%2 != 0) {
		kind = Unsigned
	}

	repeat := 1
	if elem != f.Size {
		repeat = f.Size / elem
	}

	var code string
	var width, count int
	if kind.IsTime() {
		code, width, _ = unpack.Code(elem / 2)
		code += "2"
		count = 2
	} else {
		code, width, count = unpack.Code(elem)
	}

	if code == "" || (repeat == 0 && !f.Flexible) {
		return "", nil
	}

	desc := code
	if repeat != 1 && len(code) != 1 {
		desc = "(" + code + ")"
	}

	switch {
	case f.Flexible:
		desc += string(unpack.Unlimited)
	case repeat > 1:
		desc += strconv.Itoa(repeat)
	}

	switch {
	case kind == Blob:
		n := strconv.Itoa(repeat)
		if f.Flexible {
			n = string(unpack.Unlimited)
			repeat = -1
		}
		return desc, []Column{{
			Name: name + "[" + n + "]", Field: f.Name, Kind: Blob, Width: 1, Count: repeat,
		}}
	case f.Flexible:
		return desc, []Column{{
			Name: name + "[*]", Field: f.Name, Kind: kind, Width: width, Count: -1,
		}}
	}

	columns := make([]Column, 0, repeat*count)
	for i := 1; i <= repeat; i++ {
		base := name
		if repeat > 1 {
			base = name + "_" + strconv.Itoa(i)
		}

		if kind.IsTime() {
			columns = append(columns,
				Column{Name: base + ".sec", Field: f.Name, Kind: Signed, Width: width, Count: 1},
				Column{Name: base + ".nsec", Field: f.Name, Kind: Signed, Width: width, Count: 1},
			)
			w.extra.Printf("%[1]s = %[2]s(%[1]s.sec, %[1]s.nsec)\n", base, kind)
			continue
		}

		for j := 1; j <= count; j++ {
			col := base
			if count > 1 {
				col = base + "_" + strconv.Itoa(j)
			}
			columns = append(columns, Column{Name: col, Field: f.Name, Kind: kind, Width: width, Count: 1})
		}
	}
	return desc, columns
}

func (w *Walker) addName(name string) {
	if w.names.Len() > 0 {
		if w.width+len(", ")+len(name) > w.wrap {
			w.names.WriteString(",\n    ")
			w.width = 4
		} else {
			w.width += w.names.WriteString(", ")
		}
	}
	w.width += w.names.WriteString(name)
}
