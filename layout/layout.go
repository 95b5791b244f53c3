// Package layout produces field descriptor tables for the walker.
//
// Tables come from four sources: Go struct types via reflection, a
// built-in catalog of kernel ABI records, YAML files and kernel BTF.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/msantos/unpacker/walker"
)

var (
	// ErrNotStruct is returned when the reflection bridge is given a
	// non-struct value.
	ErrNotStruct = errors.New("not a struct")

	// ErrUnsupported is returned for a member type without a fixed
	// layout.
	ErrUnsupported = errors.New("unsupported member type")

	// ErrNotFound is returned for an unknown table name.
	ErrNotFound = errors.New("layout not found")

	// ErrInvalid is returned for a malformed table.
	ErrInvalid = errors.New("invalid layout")
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the layout package's logger instance.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the layout package's logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

type table func() (walker.Layout, error)

var catalog = map[string]table{}

func register(name string, fn table) {
	catalog[name] = fn
}

// Lookup returns a table from the built-in catalog.
func Lookup(name string) (walker.Layout, error) {
	fn, ok := catalog[strings.ToLower(name)]
	if !ok {
		return walker.Layout{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	l, err := fn()
	if err != nil {
		return walker.Layout{}, fmt.Errorf("%s: %w", name, err)
	}
	return l, nil
}

// Names returns the sorted names of the built-in catalog.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that offsets and sizes are non-negative and fields are
// in offset order.
func Validate(l walker.Layout) error {
	if l.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalid)
	}
	if l.Size < 0 {
		return fmt.Errorf("%w: %s: size %d", ErrInvalid, l.Name, l.Size)
	}
	prev := 0
	for i, f := range l.Fields {
		switch {
		case f.Name == "":
			return fmt.Errorf("%w: %s: field %d: missing name", ErrInvalid, l.Name, i)
		case f.Offset < 0 || f.Size < 0 || f.ElemSize < 0:
			return fmt.Errorf("%w: %s: %s: negative offset or size", ErrInvalid, l.Name, f.Name)
		case f.Offset < prev:
			return fmt.Errorf("%w: %s: %s: offset %d precedes %d", ErrInvalid, l.Name, f.Name, f.Offset, prev)
		case f.ElemSize > 0 && f.Size%f.ElemSize != 0:
			return fmt.Errorf("%w: %s: %s: size %d not a multiple of %d",
				ErrInvalid, l.Name, f.Name, f.Size, f.ElemSize)
		case f.Flexible && i != len(l.Fields)-1:
			return fmt.Errorf("%w: %s: %s: flexible member is not last", ErrInvalid, l.Name, f.Name)
		}
		prev = f.Offset
	}
	return nil
}
