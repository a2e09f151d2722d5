package main

import (
	"fmt"
	"runtime/debug"

	wl "deedles.dev/wlcore/server"
	"deedles.dev/wlcore/xdg"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version := Version
		if version == "" {
			version = "(devel)"
			if info, ok := debug.ReadBuildInfo(); ok {
				version = info.Main.Version
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "wlcore %v\n", version)
		fmt.Fprintf(out, "%v v%v\n", wl.CompositorInterface, wl.CompositorVersion)
		fmt.Fprintf(out, "%v v%v\n", wl.ShmInterface, wl.ShmVersion)
		fmt.Fprintf(out, "%v v%v\n", xdg.WmBaseInterface, xdg.WmBaseVersion)
	},
}
