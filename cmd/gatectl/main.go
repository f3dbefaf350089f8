// Command gatectl administers invites and accounts directly against the
// configured store.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gatectl:", err)
		os.Exit(1)
	}
}
