package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Build-time variables for version info
var (
	// Release is the current release version
	Release = "dev"
	// GitCommit is the git commit hash
	GitCommit = "none"
	// GOOS is the operating system
	GOOS = runtime.GOOS
	// GOARCH is the architecture
	GOARCH = runtime.GOARCH
)

//nolint:gochecknoglobals // Cobra flags are typically global
var shortVersion bool

//nolint:gochecknoglobals // Cobra commands are typically global
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of indexopt.",
	Long: `Prints the version of indexopt and of the Elasticsearch client it was
built with. Force-merge requires a cluster that accepts _forcemerge (2.1+).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		printVersion(cmd.OutOrStdout(), shortVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "print the release only")
}

func printVersion(out io.Writer, short bool) {
	if short {
		fmt.Fprintln(out, Release)

		return
	}

	fmt.Fprintf(out, "Version: %s\nCommit: %s\nElasticsearch client: %s\nGo: %s\nOS/Arch: %s/%s\n",
		Release, GitCommit, elasticsearch.ClientVersion(), runtime.Version(), GOOS, GOARCH)
}
