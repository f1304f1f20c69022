// Command casechat loads a local model, primes it with a seed prompt and
// chats with the operator until they type the exit sentinel.
package main

import (
	"context"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
