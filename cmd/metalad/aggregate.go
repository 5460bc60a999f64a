package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/metalad-go/metalad/aggregate"
	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/containment/git"
	"github.com/metalad-go/metalad/graph"
	"github.com/metalad-go/metalad/merrors"
)

var (
	aggregateContainmentVCS string
	aggregateRecursive      bool
	aggregateBackend        backendFlags
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <destination-realm> [sub-path sub-realm]...",
	Short: "merge one or more source realms' metadata graphs into a destination realm",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		destRealm := args[0]
		pairs := args[1:]
		if len(pairs)%2 != 0 {
			return merrors.InvalidArgumentError{Message: "sub-path/sub-realm arguments must come in pairs"}
		}

		if aggregateRecursive {
			return merrors.NotImplementedError{Feature: "recursive aggregation"}
		}
		if aggregateContainmentVCS != "git" {
			return merrors.NotImplementedError{Feature: fmt.Sprintf("containment backend %q", aggregateContainmentVCS)}
		}

		b, err := resolveBackend(ctx, aggregateBackend)
		if err != nil {
			return err
		}

		items := make([]aggregate.AggregateItem, 0, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			subPath := graph.Path(strings.Trim(pairs[i], "/"))
			subRealm := backend.RealmID(pairs[i+1])

			tvl, uuidSet, ok, err := graph.LoadRoots(ctx, b, subRealm)
			if err != nil {
				return err
			}
			item := aggregate.AggregateItem{DestinationPath: subPath}
			if ok {
				item.SourceTreeVersionList = tvl
				item.SourceUUIDSet = uuidSet
			}
			items = append(items, item)
		}

		opts := aggregate.AggregateOptions{
			Prober:            git.Prober{},
			ParentRealmFSPath: destRealm,
			Timestamp:         graph.Timestamp(strconv.FormatInt(time.Now().Unix(), 10)),
		}

		result, err := aggregate.Aggregate(ctx, b, backend.RealmID(destRealm), items, opts)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, item := range result.Items {
			_ = enc.Encode(map[string]any{
				"action":  "aggregate",
				"backend": aggregateContainmentVCS,
				"realm":   item.DestinationPath,
				"status":  item.Status,
				"message": item.Message,
			})
		}
		return nil
	},
}

func init() {
	aggregateBackend.register(aggregateCmd.Flags())
	aggregateCmd.Flags().StringVar(&aggregateContainmentVCS, "containment-backend", "git", "version-containment probe backend (\"git\" is the only defined value)")
	aggregateCmd.Flags().BoolVar(&aggregateRecursive, "recursive", false, "reserved, not implemented")
}
