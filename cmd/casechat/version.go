package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=... -X main.BuildDate=...".
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprintf(w, "casechat %s\n", Version)
			fmt.Fprintf(w, "built:   %s\n", BuildDate)
			fmt.Fprintf(w, "go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
