package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/quatton/qseq/apps/qseq/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "qseq crashed: %v\n", r)
			if os.Getenv("QSEQ_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
