// Command metalad is the reference CLI binary: thin wiring over
// extraction.Run and aggregate.Aggregate, grounded on the registry's
// cobra-based RootCmd (registry/root.go) and cmd/registry/main.go.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/metalad-go/metalad/version"

	_ "github.com/metalad-go/metalad/backend/filesystem"
	_ "github.com/metalad-go/metalad/backend/inmemory"
)

var showVersion bool

func init() {
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(aggregateCmd)
}

// rootCmd is the main command for the "metalad" binary.
var rootCmd = &cobra.Command{
	Use:   "metalad",
	Short: "metadata graph store and aggregation engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(version.String())
			return nil
		}
		return cmd.Usage()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("metalad: command failed")
		os.Exit(1)
	}
}
