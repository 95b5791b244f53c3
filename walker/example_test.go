package walker_test

import (
	"fmt"
	"os"

	"github.com/msantos/unpacker/walker"
)

func ExampleWalk() {
	_, err := walker.Walk(walker.Layout{
		Name: "three",
		Size: 16,
		Fields: []walker.Field{
			{Offset: 0, Size: 4, Name: "a"},
			{Offset: 4, Size: 4, Name: "b"},
			{Offset: 8, Size: 8, Name: "c"},
		},
	}, walker.WithOutput(os.Stdout))
	if err != nil {
		fmt.Println(err)
		return
	}
	// Output:
	//     16 three {
	//   0  4   L       a
	//   4  4   L       b
	//   8  8   Q       c
	//     16 }
	// a, b, c = decode('LLQ', raw)  # three (16 bytes)
}

func ExampleWalker_Field() {
	w := walker.Start("timespec", 16, walker.WithOutput(os.Stdout))
	if err := w.Field(walker.Field{Offset: 0, Size: 16, Kind: walker.Timespec, Name: "ts"}); err != nil {
		fmt.Println(err)
		return
	}
	if _, err := w.End(); err != nil {
		fmt.Println(err)
		return
	}
	// Output:
	//     16 timespec {
	//   0 16   Q2      ts
	//     16 }
	// ts.sec, ts.nsec = decode('Q2', raw)  # timespec (16 bytes)
	// ts = timespec(ts.sec, ts.nsec)
}
