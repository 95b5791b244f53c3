package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strings"
	"time"

	"github.com/msantos/unpacker/buildenv"
	"github.com/msantos/unpacker/die"
)

var version = "0.1.0"

const maxExp = 128

func hex(b []byte) string {
	var s strings.Builder
	for i, c := range b {
		if i > 0 && i%4 == 0 {
			s.WriteByte(' ')
		}
		fmt.Fprintf(&s, " %02x", c)
	}
	return s.String()
}

// micros formats v as microseconds since the epoch.
func micros(v float64, layout string) string {
	sec := v / 1e6
	if math.IsInf(sec, 0) || math.Abs(sec) > math.MaxInt64/2 {
		return "out of range"
	}
	return time.Unix(int64(sec), 0).UTC().Format(layout)
}

type repr struct {
	name  string
	round func(float64) float64
	bytes func(float64, buildenv.ByteOrder) []byte
}

var reprs = []repr{
	{
		name:  "float32",
		round: func(v float64) float64 { return float64(float32(v)) },
		bytes: func(v float64, o buildenv.ByteOrder) []byte {
			return o.AppendUint32(nil, math.Float32bits(float32(v)))
		},
	},
	{
		name:  "float64",
		round: func(v float64) float64 { return v },
		bytes: func(v float64, o buildenv.ByteOrder) []byte {
			return o.AppendUint64(nil, math.Float64bits(v))
		},
	},
}

// run prints 2^i and 2^i+1 until the two values can no longer be told
// apart. It returns the first exponent at which they compare equal.
func run(w io.Writer, r repr) int {
	order := buildenv.Order()
	for i := 0; i < maxExp; i++ {
		a := r.round(math.Ldexp(1, i))
		b := r.round(a + 1)

		state := "distinct"
		if a == b {
			state = "same"
		}

		fmt.Fprintf(w, "%-20s %3d  %-8s  |%s  |%s  | %s  | %s\n",
			r.name, i, state,
			hex(r.bytes(a, order)), hex(r.bytes(b, order)),
			micros(-a, time.DateTime), micros(a, time.DateTime+" -0700"))

		if a == b {
			return i
		}
	}
	return -1
}

func main() {
	defer die.Recover()

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, `%s v%s
Usage: %s [options]

Finds the first power of two at which adding one is lost to rounding.

Options:
`, path.Base(os.Args[0]), version, os.Args[0])
		flag.PrintDefaults()
	}

	only := flag.String("type", "", "float32 or float64 (default: both)")
	flag.Parse()

	found := false
	for _, r := range reprs {
		if *only != "" && *only != r.name {
			continue
		}
		found = true
		run(os.Stdout, r)
	}

	if !found {
		flag.Usage()
		os.Exit(die.ExitUsage)
	}
}
