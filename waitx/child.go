package waitx

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ChildEnv is set in the environment of a self re-exec child. The value
// is "<exit status>,<sleep>,<spin>".
const ChildEnv = "WAITX_CHILD"

// Child defaults.
const (
	DefaultExit  = 0x1234567
	DefaultSleep = time.Second
	DefaultSpin  = 100000000
)

// ChildSpec describes the behaviour of the self re-exec child.
type ChildSpec struct {
	Exit  int
	Sleep time.Duration
	Spin  int // busy loop iterations
}

func (c ChildSpec) String() string {
	return fmt.Sprintf("%d,%s,%d", c.Exit, c.Sleep, c.Spin)
}

// ParseChildSpec parses the value of ChildEnv.
func ParseChildSpec(s string) (ChildSpec, error) {
	c := ChildSpec{Exit: DefaultExit, Sleep: DefaultSleep, Spin: DefaultSpin}
	if s == "" {
		return c, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return c, fmt.Errorf("%s: %q: expected exit,sleep,spin", ChildEnv, s)
	}

	var err error
	if c.Exit, err = strconv.Atoi(parts[0]); err != nil {
		return c, fmt.Errorf("%s: exit: %w", ChildEnv, err)
	}
	if c.Sleep, err = time.ParseDuration(parts[1]); err != nil {
		return c, fmt.Errorf("%s: sleep: %w", ChildEnv, err)
	}
	if c.Spin, err = strconv.Atoi(parts[2]); err != nil {
		return c, fmt.Errorf("%s: spin: %w", ChildEnv, err)
	}
	return c, nil
}

// IsChild reports whether the process was started as a self re-exec
// child.
func IsChild() bool {
	_, ok := os.LookupEnv(ChildEnv)
	return ok
}

// Child runs the self re-exec child: it burns CPU, sleeps and exits with
// the requested status. The kernel keeps the low 8 bits.
func Child() {
	c, err := ParseChildSpec(os.Getenv(ChildEnv))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	j := 1000
	for i := 0; i < c.Spin; i++ {
		j += i % j
	}
	if j < 0 {
		fmt.Fprintln(os.Stderr, j)
	}

	time.Sleep(c.Sleep)
	os.Exit(c.Exit)
}
