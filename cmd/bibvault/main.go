package main

import (
	"fmt"
	"os"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	if tip := hint(err); tip != "" {
		fmt.Fprintln(os.Stderr, "Tip:", tip)
	}
	os.Exit(1)
}
