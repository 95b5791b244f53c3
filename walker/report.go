package walker

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/msantos/unpacker/unpack"
)

// ErrColumns is returned when decoded values do not match the columns.
var ErrColumns = errors.New("decoded values do not match columns")

// Gap is a run of unused bytes. Size is negative for a backward skip.
type Gap struct {
	Offset int
	Size   int
}

// Column is one named value in the decode expression.
type Column struct {
	Name  string
	Field string // name of the declaring field
	Kind  Kind
	Width int // bytes per value
	Count int // values spanned; -1 for the rest of the input
}

// Report is the result of a walk.
type Report struct {
	Name    string
	Size    int
	Format  string
	Fields  []Field
	Columns []Column
	Gaps    []Gap
	Extra   []string
}

// Names returns the column names in order.
func (r *Report) Names() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// NameList returns the column names joined by ", ".
func (r *Report) NameList() string {
	return strings.Join(r.Names(), ", ")
}

// Padding is the total number of bytes skipped.
func (r *Report) Padding() int {
	n := 0
	for _, g := range r.Gaps {
		n += g.Size
	}
	return n
}

// Value is a decoded column.
type Value struct {
	Column
	Raw []uint64
}

// Decode applies the report's descriptor to raw and maps the values to
// columns.
func (r *Report) Decode(raw []byte, order binary.ByteOrder) ([]Value, error) {
	vals, err := unpack.Decode(r.Format, raw, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}

	values := make([]Value, 0, len(r.Columns))
	i := 0
	for _, c := range r.Columns {
		n := c.Count
		if n < 0 {
			n = len(vals) - i
		}
		if i+n > len(vals) {
			return values, fmt.Errorf("%s: %w: %s", r.Name, ErrColumns, c.Name)
		}
		values = append(values, Value{Column: c, Raw: vals[i : i+n]})
		i += n
	}

	if i != len(vals) {
		return values, fmt.Errorf("%s: %w: %d values, %d used", r.Name, ErrColumns, len(vals), i)
	}
	return values, nil
}

// ByName indexes decoded values by column name.
func ByName(values []Value) map[string]Value {
	m := make(map[string]Value, len(values))
	for _, v := range values {
		m[v.Name] = v
	}
	return m
}

// Uint returns the first value zero extended.
func (v Value) Uint() uint64 {
	if len(v.Raw) == 0 {
		return 0
	}
	return v.Raw[0]
}

// Int returns the first value sign extended from the column width.
func (v Value) Int() int64 {
	u := v.Uint()
	if v.Width <= 0 || v.Width >= 8 {
		return int64(u)
	}
	shift := 64 - uint(v.Width)*8
	return int64(u<<shift) >> shift
}

// Float returns the first value as an IEEE 754 number of the column
// width.
func (v Value) Float() float64 {
	switch v.Width {
	case 4:
		return float64(math.Float32frombits(uint32(v.Uint())))
	case 8:
		return math.Float64frombits(v.Uint())
	}
	return math.NaN()
}

// Bytes returns the low byte of each value.
func (v Value) Bytes() []byte {
	b := make([]byte, len(v.Raw))
	for i, x := range v.Raw {
		b[i] = byte(x)
	}
	return b
}

func (v Value) String() string {
	if v.Kind == Blob {
		return fmt.Sprintf("%x", v.Bytes())
	}
	if len(v.Raw) != 1 {
		s := make([]string, len(v.Raw))
		for i := range v.Raw {
			s[i] = Value{Column: v.Column, Raw: v.Raw[i : i+1]}.String()
		}
		return "[" + strings.Join(s, " ") + "]"
	}

	switch v.Kind {
	case Signed:
		return strconv.FormatInt(v.Int(), 10)
	case Float:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case Pointer:
		return fmt.Sprintf("%#x", v.Uint())
	}
	return strconv.FormatUint(v.Uint(), 10)
}
