package process_test

import (
	"fmt"

	"github.com/msantos/unpacker/process"
)

func ExampleProcess_Children() {
	ps, err := process.New(process.WithPid(1))
	if err != nil {
		fmt.Println(err)
		return
	}
	pids, err := ps.Children()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(pids)
}

func ExampleProcess_Stat() {
	ps, err := process.New()
	if err != nil {
		fmt.Println(err)
		return
	}
	st, err := ps.Stat()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(process.StateName(st.State))
}
