// Package aggregate implements the aggregation engine (spec.md §4.F):
// merging one or more source realms' metadata graphs into a destination
// realm, rewriting realm-relative paths as it goes. Grounded line-for-line
// on datalad_metalad/aggregate.py's perform_aggregation / copy_uuid_set /
// copy_tree_version_list.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/containment"
	"github.com/metalad-go/metalad/graph"
	"github.com/metalad-go/metalad/internal/dcontext"
	"github.com/metalad-go/metalad/merrors"
)

// ErrDetachedMetadata is returned (wrapped in an ItemResult, never as the
// call's own error) when the containment probe finds no destination
// version referencing a source version at destination_path -- the "open
// question" spec.md §4.F defers to the integrator. This implementation's
// default is to reject (Open Question decision 1); set
// AggregateOptions.OnDetached to SynthesizeDetached to opt into minting a fresh
// destination root version instead.
var ErrDetachedMetadata = errors.New("aggregate: no destination version contains the source version at destination_path")

// DetachedPolicy selects the behavior when a source version is detached
// from the destination's version history.
type DetachedPolicy int

const (
	// RejectDetached stops the item's tree merge at the first detached
	// version with ErrDetachedMetadata; that item's later source versions
	// are not merged. This is the default.
	RejectDetached DetachedPolicy = iota
	// SynthesizeDetached mints a fresh destination root version carrying
	// only the newly copied subtree, rather than failing.
	SynthesizeDetached
)

// AggregateItem is one source to fold into the destination (spec.md
// §4.F).
type AggregateItem struct {
	SourceTreeVersionList *graph.TreeVersionList
	SourceUUIDSet         *graph.UUIDSet
	DestinationPath       graph.Path
}

// AggregateOptions configures aggregation-wide behavior.
type AggregateOptions struct {
	OnDetached DetachedPolicy
	// Recursive is accepted but not implemented (Open Question decision 3):
	// aggregation across nested sub-collections discovered transitively is
	// out of scope for the first implementation.
	Recursive bool

	// Prober answers containment queries for the tree-version-list merge.
	// Every source version is looked up through it, so it is required
	// whenever any item's source TreeVersionList has a version; a nil
	// Prober then fails the call with merrors.InvalidArgumentError.
	Prober containment.Prober
	// ParentRealmFSPath is the filesystem path of the destination realm,
	// passed to Prober.FindRootVersion as parent_realm_fs_path.
	ParentRealmFSPath string

	// Timestamp stamps any DatasetTree write-back this call performs. The
	// graph model never calls time.Now itself (design note §9); the
	// caller supplies the wall-clock time to use.
	Timestamp graph.Timestamp
}

// ItemStatus is one line of the aggregation CLI's structured result
// stream (spec.md §6: "a stream of structured results {action, backend,
// realm, status, message}").
type ItemStatus string

const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// ItemResult reports the outcome of aggregating one AggregateItem.
type ItemResult struct {
	DestinationPath graph.Path
	Status          ItemStatus
	Message         string
}

// Result is the outcome of a whole Aggregate call.
type Result struct {
	Items []ItemResult
}

// Aggregate merges each item into the destination realm's TreeVersionList
// and UUIDSet, locking the destination realm exactly once around the
// whole operation (spec.md §4.F: "destination realm is locked exactly
// once around the whole aggregation; sources are read without locking").
func Aggregate(ctx context.Context, b backend.Backend, destRealm backend.RealmID, items []AggregateItem, opts AggregateOptions) (*Result, error) {
	if opts.Recursive {
		return nil, merrors.NotImplementedError{Feature: "recursive aggregation"}
	}

	result := &Result{}
	err := backend.WithRealmLock(ctx, b, destRealm, func(ctx context.Context) error {
		destTVL, destUUIDSet, err := graph.LoadOrCreateRoots(ctx, b, destRealm)
		if err != nil {
			return err
		}

		for _, item := range items {
			if item.SourceTreeVersionList == nil || item.SourceUUIDSet == nil {
				dcontext.GetLogger(ctx).Warnf("aggregate: no source metadata model for %s, skipping", item.DestinationPath)
				result.Items = append(result.Items, ItemResult{
					DestinationPath: item.DestinationPath,
					Status:          StatusError,
					Message:         "no source metadata model found",
				})
				continue
			}

			if err := copyUUIDSet(ctx, b, item, destUUIDSet); err != nil {
				return err
			}

			if err := copyTreeVersionList(ctx, b, item, destTVL, opts); err != nil {
				if errors.Is(err, ErrDetachedMetadata) {
					dcontext.GetLogger(ctx).Warnf("aggregate: %v", err)
					result.Items = append(result.Items, ItemResult{
						DestinationPath: item.DestinationPath,
						Status:          StatusError,
						Message:         err.Error(),
					})
					continue
				}
				return err
			}

			result.Items = append(result.Items, ItemResult{DestinationPath: item.DestinationPath, Status: StatusOK})
		}

		if _, err := destTVL.Save(ctx, b, destRealm); err != nil {
			return err
		}
		if _, err := destUUIDSet.Save(ctx, b, destRealm); err != nil {
			return err
		}
		return b.Flush(ctx, destRealm)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// copyUUIDSet implements spec.md §4.F's copy_uuid_set.
func copyUUIDSet(ctx context.Context, b backend.Backend, item AggregateItem, destUUIDSet *graph.UUIDSet) error {
	for _, uuid := range item.SourceUUIDSet.UUIDs() {
		sourceVL, _, err := item.SourceUUIDSet.GetVersionList(ctx, b, uuid)
		if err != nil {
			return err
		}

		destVL, found, err := destUUIDSet.GetVersionList(ctx, b, uuid)
		if err != nil {
			return err
		}
		if !found {
			copied, err := sourceVL.DeepCopy(ctx, b, item.DestinationPath)
			if err != nil {
				return err
			}
			destUUIDSet.SetVersionList(uuid, copied)
			if err := item.SourceUUIDSet.UngetVersionList(ctx, b, uuid); err != nil {
				return err
			}
			continue
		}

		for _, version := range sourceVL.Versions() {
			ts, oldPath, mrr, ok, err := sourceVL.Get(ctx, b, version)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			newPath := graph.JoinPath(item.DestinationPath, oldPath)
			newMRR, err := mrr.DeepCopy(ctx, b)
			if err != nil {
				return err
			}
			destVL.Set(version, ts, newPath, newMRR)
		}

		if err := item.SourceUUIDSet.UngetVersionList(ctx, b, uuid); err != nil {
			return err
		}
	}
	return nil
}

// copyTreeVersionList implements spec.md §4.F's copy_tree_version_list.
func copyTreeVersionList(ctx context.Context, b backend.Backend, item AggregateItem, destTVL *graph.TreeVersionList, opts AggregateOptions) error {
	for _, sourceVersion := range item.SourceTreeVersionList.Versions() {
		_, sourceTree, ok, err := item.SourceTreeVersionList.GetDatasetTree(ctx, b, sourceVersion)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		rootVersions, err := destinationRootVersions(ctx, opts, item, string(sourceVersion))
		if err != nil {
			return err
		}
		if len(rootVersions) == 0 {
			if opts.OnDetached == SynthesizeDetached {
				rootVersions = []graph.Version{graph.Version(graph.NewUUID())}
			} else {
				return fmt.Errorf("%w: source version %s at %s", ErrDetachedMetadata, sourceVersion, item.DestinationPath)
			}
		}

		for _, rootVersion := range rootVersions {
			destTree, err := destTVL.GetOrCreateDatasetTree(ctx, b, rootVersion, opts.Timestamp)
			if err != nil {
				return err
			}
			if destTree.Contains(item.DestinationPath) {
				dcontext.GetLogger(ctx).Warnf("aggregate: replacing existing subtree at %s under root version %s", item.DestinationPath, rootVersion)
				destTree.DeleteSubtree(item.DestinationPath)
			}
			copiedTree, err := sourceTree.DeepCopy(ctx, b, item.DestinationPath)
			if err != nil {
				return err
			}
			if err := destTree.AddSubtree(copiedTree, ""); err != nil {
				return err
			}
			destTVL.SetDatasetTree(rootVersion, opts.Timestamp, destTree)
		}

		if err := item.SourceTreeVersionList.UngetDatasetTree(ctx, b, sourceVersion); err != nil {
			return err
		}
	}
	return nil
}

// destinationRootVersions resolves which destination root versions'
// trees, at item.DestinationPath, reference sourceVersion -- spec.md
// §4.F step 1 of copy_tree_version_list ("query G to get the set of
// destination (root) versions whose root tree at destination_path equals
// source_pd_version"), delegated to the containment probe.
func destinationRootVersions(ctx context.Context, opts AggregateOptions, item AggregateItem, sourceVersion string) ([]graph.Version, error) {
	if opts.Prober == nil {
		return nil, merrors.InvalidArgumentError{Message: "aggregate: AggregateOptions.Prober is required"}
	}
	rootVersion, found, err := opts.Prober.FindRootVersion(ctx, opts.ParentRealmFSPath, string(item.DestinationPath), sourceVersion)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return []graph.Version{graph.Version(rootVersion)}, nil
}
