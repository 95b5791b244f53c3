package walker

import (
	"fmt"
	"strings"
)

// Kind is the numeric interpretation of a field.
type Kind int

const (
	Unsigned Kind = iota
	Signed
	Timeval  // seconds and microseconds
	Timespec // seconds and nanoseconds
	Float
	Blob
	Pointer
)

var kindNames = [...]string{
	Unsigned: "unsigned",
	Signed:   "signed",
	Timeval:  "timeval",
	Timespec: "timespec",
	Float:    "float",
	Blob:     "blob",
	Pointer:  "pointer",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsTime reports whether the field is a seconds/fraction pair.
func (k Kind) IsTime() bool {
	return k == Timeval || k == Timespec
}

var kindAliases = map[string]Kind{
	"":           Unsigned,
	"uint":       Unsigned,
	"int":        Signed,
	"char_array": Blob,
	"ptr":        Pointer,
}

// ParseKind returns the kind for its name.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrKind, s)
}
