package main

import (
	"fmt"
	"os"

	"github.com/Linaro/lite-cornea/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cornea:", err)
		os.Exit(1)
	}
}
