package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/extraction"
	"github.com/metalad-go/metalad/extractor/builtin"
	"github.com/metalad-go/metalad/extractor/registry"
	"github.com/metalad-go/metalad/graph"
	"github.com/metalad-go/metalad/merrors"
)

// builtinExtractors is the optional helper registry this binary wires
// extraction.Run's Factory from (spec.md §4.D: "Extractors are located by
// name via a plugin registry external to the core"). This binary registers
// its own extractors against it below, from init(); a different deployment
// of the same core is free to populate a registry of its own instead,
// matching "no core-baked registry".
var builtinExtractors = registry.New()

func init() {
	builtinExtractors.Register(context.Background(), "filestat", builtin.NewFileStat)
}

var (
	extractSourceRealm string
	extractIntoRealm   string
	extractPath        string
	extractRootVersion string
	extractVersion     string
	extractUUID        string
	extractAgentName   string
	extractAgentEmail  string
	extractBackend     backendFlags
)

var extractCmd = &cobra.Command{
	Use:   "extract <extractor-name>",
	Short: "run a metadata extractor against a dataset or file and record its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		extractorName := args[0]

		intoRealm := extractIntoRealm
		if intoRealm == "" {
			intoRealm = extractSourceRealm
		}

		sourceUUID, err := graph.ParseUUID(extractUUID)
		if err != nil {
			return merrors.InvalidArgumentError{Message: "invalid --uuid: " + err.Error()}
		}

		b, err := resolveBackend(ctx, extractBackend)
		if err != nil {
			return err
		}

		datasetTreePath, fileTreePath := extraction.DerivePaths(
			graph.Path(extractSourceRealm),
			graph.Path(intoRealm),
			graph.Path(extractPath),
		)

		// A dataset-level run (no --path) binds the extractor to the source
		// dataset itself.
		target := extractPath
		if target == "" {
			target = extractSourceRealm
		}
		deps := extraction.Deps{
			Backend: b,
			Factory: builtinExtractors.Factory(target),
		}
		params := extraction.Params{
			Realm:                  backend.RealmID(intoRealm),
			SourceDatasetReference: extractSourceRealm,
			SourceUUID:             sourceUUID,
			SourceVersion:          graph.Version(extractVersion),
			ExtractorName:          extractorName,
			DatasetTreePath:        datasetTreePath,
			FileTreePath:           fileTreePath,
			RootVersion:            graph.Version(extractRootVersion),
			Timestamp:              graph.Timestamp(strconv.FormatInt(time.Now().Unix(), 10)),
			AgentName:              extractAgentName,
			AgentEmail:             extractAgentEmail,
		}

		result, err := extraction.Run(ctx, deps, params)
		if err != nil {
			return err
		}
		if !result.OK {
			return merrors.BackendError{Op: "extract", Err: result.Err}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "extraction %q recorded at %s\n", extractorName, datasetTreePath)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractSourceRealm, "source", "", "source realm")
	extractCmd.Flags().StringVar(&extractIntoRealm, "into", "", "destination realm (defaults to --source)")
	extractBackend.register(extractCmd.Flags())
	extractCmd.Flags().StringVar(&extractPath, "path", "", "path to extract, relative to the source realm root")
	extractCmd.Flags().StringVar(&extractRootVersion, "root-version", "", "destination tree-version-list version")
	extractCmd.Flags().StringVar(&extractVersion, "dataset-version", "", "source dataset version")
	extractCmd.Flags().StringVar(&extractUUID, "uuid", "", "source dataset UUID")
	extractCmd.Flags().StringVar(&extractAgentName, "agent-name", "", "agent name recorded on the extractor run")
	extractCmd.Flags().StringVar(&extractAgentEmail, "agent-email", "", "agent email recorded on the extractor run")
	_ = extractCmd.MarkFlagRequired("source")
	_ = extractCmd.MarkFlagRequired("root-version")
	_ = extractCmd.MarkFlagRequired("dataset-version")
	_ = extractCmd.MarkFlagRequired("uuid")
}
