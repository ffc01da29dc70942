// Command gones is a cycle-accurate NES/Famicom emulator.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gones/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gones",
		Short: "A cycle-accurate NES/Famicom emulator",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newInfoCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetBuildInfo()
			fmt.Printf("gones %s (%s, built %s by %s)\n", info.Version, info.GitCommit, info.BuildTime, info.BuildUser)
			fmt.Printf("go %s %s/%s\n", info.GoVersion, info.Platform, info.Arch)
			return nil
		},
	}
}
