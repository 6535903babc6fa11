package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	rootCmd := newRootCmd(out, errOut)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(errOut, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("cxxfilt: error:"), err)
		return 1
	}
	return 0
}
