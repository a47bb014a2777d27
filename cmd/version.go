package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luminahq/lumina/pkg/buildinfo"
)

// VersionCmd prints build information.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := buildinfo.Get()
		fmt.Printf("%s %s\n", info.Name, buildinfo.String())
		fmt.Printf("  go: %s\n", info.GoVersion)
	},
}
