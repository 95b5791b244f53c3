package unpack

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrSyntax is returned for a malformed descriptor.
	ErrSyntax = errors.New("invalid descriptor")

	// ErrShortBuffer is returned when the input ends inside a value.
	ErrShortBuffer = errors.New("input too short")

	// ErrSeek is returned when a backward skip moves before the input.
	ErrSeek = errors.New("skip outside input")
)

type item struct {
	code  byte
	count int // -1: unlimited
	group []item
}

type parser struct {
	s   string
	pos int
}

// Decode runs the descriptor over raw and returns every value it yields,
// zero extended to 64 bits.
func Decode(format string, raw []byte, order binary.ByteOrder) ([]uint64, error) {
	p := &parser{s: format}
	items, err := p.parse(0)
	if err != nil {
		return nil, err
	}

	d := &decoder{raw: raw, order: order}
	if err := d.run(items); err != nil {
		return d.values, err
	}
	return d.values, nil
}

func (p *parser) parse(depth int) ([]item, error) {
	var items []item

	for p.pos < len(p.s) {
		c := p.s[p.pos]
		p.pos++

		var it item
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			continue
		case c == '(':
			group, err := p.parse(depth + 1)
			if err != nil {
				return nil, err
			}
			if p.pos > len(p.s) || p.s[p.pos-1] != ')' {
				return nil, fmt.Errorf("%w: unterminated group at %d", ErrSyntax, p.pos)
			}
			it.group = group
		case c == ')':
			if depth == 0 {
				return nil, fmt.Errorf("%w: unbalanced ')' at %d", ErrSyntax, p.pos-1)
			}
			return items, nil
		case Width(c) > 0, c == SkipForward, c == SkipBackward:
			it.code = c
		default:
			return nil, fmt.Errorf("%w: unknown code %q at %d", ErrSyntax, c, p.pos-1)
		}

		it.count = p.count()
		items = append(items, it)
	}

	if depth > 0 {
		return nil, fmt.Errorf("%w: unterminated group", ErrSyntax)
	}
	return items, nil
}

func (p *parser) count() int {
	if p.pos < len(p.s) && p.s[p.pos] == Unlimited {
		p.pos++
		return -1
	}

	n, digits := 0, 0
	for ; p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9'; p.pos++ {
		n = n*10 + int(p.s[p.pos]-'0')
		digits++
	}
	if digits == 0 {
		return 1
	}
	return n
}

type decoder struct {
	raw    []byte
	pos    int
	order  binary.ByteOrder
	values []uint64
}

func (d *decoder) run(items []item) error {
	for _, it := range items {
		if err := d.step(it); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) step(it item) error {
	if it.count < 0 {
		for d.pos < len(d.raw) {
			start := d.pos
			if err := d.once(it); err != nil {
				if errors.Is(err, ErrShortBuffer) {
					return nil
				}
				return err
			}
			if d.pos <= start {
				return nil
			}
		}
		return nil
	}

	for i := 0; i < it.count; i++ {
		if err := d.once(it); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) once(it item) error {
	switch {
	case it.group != nil:
		return d.run(it.group)
	case it.code == SkipForward:
		if d.pos+1 > len(d.raw) {
			return fmt.Errorf("%w: skip at %d", ErrShortBuffer, d.pos)
		}
		d.pos++
		return nil
	case it.code == SkipBackward:
		if d.pos == 0 {
			return fmt.Errorf("%w: at %d", ErrSeek, d.pos)
		}
		d.pos--
		return nil
	}

	w := Width(it.code)
	if d.pos+w > len(d.raw) {
		return fmt.Errorf("%w: %c at %d needs %d bytes, have %d",
			ErrShortBuffer, it.code, d.pos, w, len(d.raw)-d.pos)
	}
	b := d.raw[d.pos : d.pos+w]
	d.pos += w

	var v uint64
	switch w {
	case 1:
		v = uint64(b[0])
	case 2:
		v = uint64(d.order.Uint16(b))
	case 4:
		v = uint64(d.order.Uint32(b))
	case 8:
		v = d.order.Uint64(b)
	}
	d.values = append(d.values, v)
	return nil
}
