// Package git implements containment.Prober against git history, using
// go-git's plumbing instead of shelling out the way the Python original
// does (subprocess.run(["git", "log", "--find-object=...", ...])).
// go-git exposes the commit/tree walk needed to answer "which commit's
// tree references object X" natively.
package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/metalad-go/metalad/containment"
	"github.com/metalad-go/metalad/internal/dcontext"
	"github.com/metalad-go/metalad/merrors"
)

const marker = ".git"

// Prober is a containment.Prober backed by git submodule gitlinks: each
// ancestor directory that is itself a git working tree is searched for a
// commit whose tree has a gitlink entry, at the path of the tracked
// directory, equal to the tracked version.
type Prober struct{}

var _ containment.Prober = Prober{}

// FindRootVersion implements containment.Prober (spec.md §4.G).
func (Prober) FindRootVersion(ctx context.Context, parentRealmPath, subPath, subVersion string) (string, bool, error) {
	root := filepath.Clean(parentRealmPath)
	tracked := filepath.Clean(filepath.Join(parentRealmPath, subPath))
	if tracked != root && !strings.HasPrefix(tracked, root+string(filepath.Separator)) {
		return "", false, merrors.InvalidArgumentError{Message: "sub-path escapes the parent realm root"}
	}

	// An empty sub-path names the realm root itself: there is nothing to
	// walk up to, so it is trivially contained at its own version.
	if tracked == root {
		return subVersion, true, nil
	}

	currentVersion := subVersion
	trackedDir := tracked
	dir := filepath.Dir(tracked)

	for {
		if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
			version, found, err := findReferencingCommit(dir, trackedDir, currentVersion)
			if err != nil {
				return "", false, err
			}
			if !found {
				dcontext.GetLogger(ctx).Debugf("containment probe: %s has no commit referencing %s at %s", dir, currentVersion, trackedDir)
				return "", false, nil
			}
			currentVersion = version
			trackedDir = dir
		}
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Walked past the filesystem root without reaching parentRealmPath.
			return "", false, merrors.InvalidArgumentError{Message: "parent realm path is not an ancestor of sub-path"}
		}
		dir = parent
	}

	return currentVersion, true, nil
}

// findReferencingCommit searches repoDir's commit history for a commit
// whose tree has, at the path of trackedDir relative to repoDir, a tree
// entry with hash == trackedVersion.
func findReferencingCommit(repoDir, trackedDir, trackedVersion string) (string, bool, error) {
	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		return "", false, merrors.BackendError{Op: "containment/git: open repository", Err: err}
	}
	targetHash := plumbing.NewHash(trackedVersion)
	relPath, err := filepath.Rel(repoDir, trackedDir)
	if err != nil {
		return "", false, merrors.InvalidArgumentError{Message: "tracked directory is not inside the repository"}
	}
	relPath = filepath.ToSlash(relPath)

	commits, err := repo.CommitObjects()
	if err != nil {
		return "", false, merrors.BackendError{Op: "containment/git: list commits", Err: err}
	}
	defer commits.Close()

	var found string
	err = commits.ForEach(func(c *object.Commit) error {
		tree, err := c.Tree()
		if err != nil {
			return nil // unreadable tree: skip this commit, keep searching
		}
		entry, err := tree.FindEntry(relPath)
		if err != nil {
			return nil // path absent in this commit's tree
		}
		if entry.Hash == targetHash {
			found = c.Hash.String()
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && err != storer.ErrStop {
		return "", false, merrors.BackendError{Op: "containment/git: walk commits", Err: err}
	}
	if found == "" {
		return "", false, nil
	}
	return found, true, nil
}
