// Package main provides the lineforge command line tool.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lineforge:", err)
		os.Exit(1)
	}
}
