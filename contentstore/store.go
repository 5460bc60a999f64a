package contentstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/metalad-go/metalad/merrors"
)

const (
	indexFileName   = "index.json"
	contentFileName = "content"
)

// PathEntry is one row of Store.GetPaths' result.
type PathEntry struct {
	Path      string
	IsDataset bool
}

// Store is an indexed content store: a single append-only content file plus
// a JSON sidecar index mapping (path, format) to a byte region within it
// (spec.md §4.B / §6). Grounded on datalad-metalad's SimpleFileIndex +
// FileStorageBackend, collapsed into one type since Go has no need for the
// Python original's separate pluggable storage-backend layer -- the content
// file here plays that role directly.
type Store struct {
	dir         string
	contentPath string

	mu           sync.Mutex
	content      *os.File
	contentSize  uint64
	idx          *indexFile
	dirty        bool
}

// Create initializes a new, empty store rooted at dir (which must not
// already contain an index).
func Create(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, merrors.BackendError{Op: "contentstore.Create", Err: err}
	}
	indexPath := filepath.Join(dir, indexFileName)
	if _, err := os.Stat(indexPath); err == nil {
		return nil, merrors.PathAlreadyExistsError{Path: indexPath}
	}
	contentPath := filepath.Join(dir, contentFileName)
	f, err := os.OpenFile(contentPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, merrors.BackendError{Op: "contentstore.Create", Err: err}
	}
	return &Store{
		dir:         dir,
		contentPath: contentPath,
		content:     f,
		contentSize: 0,
		idx:         newIndexFile(),
		dirty:       true,
	}, nil
}

// Open loads an existing store rooted at dir.
func Open(dir string) (*Store, error) {
	indexPath := filepath.Join(dir, indexFileName)
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, merrors.BackendError{Op: "contentstore.Open", Err: err}
	}
	idx, err := parseIndexFile(raw)
	if err != nil {
		return nil, err
	}
	contentPath := filepath.Join(dir, contentFileName)
	f, err := os.OpenFile(contentPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, merrors.BackendError{Op: "contentstore.Open", Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		return nil, merrors.BackendError{Op: "contentstore.Open", Err: err}
	}
	return &Store{
		dir:         dir,
		contentPath: contentPath,
		content:     f,
		contentSize: uint64(info.Size()),
		idx:         idx,
	}, nil
}

// Close releases the store's open file handle.
func (s *Store) Close() error {
	return s.content.Close()
}

// AddPath registers p as a known path with no metadata attached yet. It
// fails if p is already present.
func (s *Store) AddPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idx.Paths[path]; ok {
		return merrors.PathAlreadyExistsError{Path: path}
	}
	s.idx.Paths[path] = map[string]region{}
	s.dirty = true
	return nil
}

// SetDatasetEntry marks path as a dataset root, attaching opaque
// dataset-level bookkeeping (e.g. the dataset id) alongside it. path is
// vivified if it does not already exist.
func (s *Store) SetDatasetEntry(path string, meta json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idx.Paths[path]; !ok {
		s.idx.Paths[path] = map[string]region{}
	}
	s.idx.DatasetPaths[path] = meta
	s.dirty = true
	return nil
}

// AddMetadataToPath appends data to the content file and records it under
// (path, format). path is vivified if absent; fails with
// merrors.MetadataAlreadyExistsError if (path, format) is already present.
func (s *Store) AddMetadataToPath(path, format string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	formats, ok := s.idx.Paths[path]
	if !ok {
		formats = map[string]region{}
		s.idx.Paths[path] = formats
	}
	if _, ok := formats[format]; ok {
		return merrors.MetadataAlreadyExistsError{Path: path, Format: format}
	}
	n, err := s.content.WriteAt(data, int64(s.contentSize))
	if err != nil {
		return merrors.BackendError{Op: "contentstore.AddMetadataToPath", Err: err}
	}
	formats[format] = region{Offset: s.contentSize, Size: uint64(n)}
	s.contentSize += uint64(n)
	s.dirty = true
	return nil
}

// ReplaceMetadataAtPath atomically replaces the (path, format) payload:
// the old region is retired to deleted_regions and the new bytes are
// appended, matching AddMetadataToPath's append-only discipline.
func (s *Store) ReplaceMetadataAtPath(path, format string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	formats, ok := s.idx.Paths[path]
	if !ok {
		formats = map[string]region{}
		s.idx.Paths[path] = formats
	}
	n, err := s.content.WriteAt(data, int64(s.contentSize))
	if err != nil {
		return merrors.BackendError{Op: "contentstore.ReplaceMetadataAtPath", Err: err}
	}
	if r, ok := formats[format]; ok {
		s.idx.DeletedRegions = append(s.idx.DeletedRegions, r)
	}
	formats[format] = region{Offset: s.contentSize, Size: uint64(n)}
	s.contentSize += uint64(n)
	s.dirty = true
	return nil
}

// DeleteMetadataFromPath removes the (path, format) entry, retiring its
// region to deleted_regions. If autoDeletePath is true and path has no
// remaining formats afterward, path itself (and any dataset entry) is
// removed too.
func (s *Store) DeleteMetadataFromPath(path, format string, autoDeletePath bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	formats, ok := s.idx.Paths[path]
	if !ok {
		return merrors.NotFoundError{Kind: "path", Key: path}
	}
	r, ok := formats[format]
	if !ok {
		return merrors.NotFoundError{Kind: "format", Key: fmt.Sprintf("%s@%s", format, path)}
	}
	delete(formats, format)
	s.idx.DeletedRegions = append(s.idx.DeletedRegions, r)
	if autoDeletePath && len(formats) == 0 {
		delete(s.idx.Paths, path)
		delete(s.idx.DatasetPaths, path)
	}
	s.dirty = true
	return nil
}

// GetMetadata returns the bytes stored at (path, format).
func (s *Store) GetMetadata(path, format string) ([]byte, error) {
	s.mu.Lock()
	r, err := s.region(path, format)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, r.Size)
	if _, err := s.content.ReadAt(buf, int64(r.Offset)); err != nil {
		return nil, merrors.BackendError{Op: "contentstore.GetMetadata", Err: err}
	}
	return buf, nil
}

// MetadataIterator returns a lazy reader over the bytes stored at (path,
// format), for callers that want to stream rather than buffer.
func (s *Store) MetadataIterator(path, format string) (io.ReadCloser, error) {
	s.mu.Lock()
	r, err := s.region(path, format)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &regionReader{r: io.NewSectionReader(s.content, int64(r.Offset), int64(r.Size))}, nil
}

type regionReader struct {
	r *io.SectionReader
}

func (rr *regionReader) Read(p []byte) (int, error) { return rr.r.Read(p) }
func (rr *regionReader) Close() error                { return nil }

func (s *Store) region(path, format string) (region, error) {
	formats, ok := s.idx.Paths[path]
	if !ok {
		return region{}, merrors.NotFoundError{Kind: "path", Key: path}
	}
	r, ok := formats[format]
	if !ok {
		return region{}, merrors.NotFoundError{Kind: "format", Key: fmt.Sprintf("%s@%s", format, path)}
	}
	return r, nil
}

// GetPaths returns every known path, optionally filtered by pattern, along
// with whether each is a dataset root. Sorted for determinism.
func (s *Store) GetPaths(pattern *regexp.Regexp) []PathEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PathEntry, 0, len(s.idx.Paths))
	for p := range s.idx.Paths {
		if pattern != nil && !pattern.MatchString(p) {
			continue
		}
		_, isDataset := s.idx.DatasetPaths[p]
		out = append(out, PathEntry{Path: p, IsDataset: isDataset})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len reports the number of known paths.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.idx.Paths)
}

// Flush fsyncs the content file and, if the index has pending changes,
// rewrites index.json.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.content.Sync(); err != nil {
		return merrors.BackendError{Op: "contentstore.Flush", Err: err}
	}
	if !s.dirty {
		return nil
	}
	data, err := json.Marshal(s.idx)
	if err != nil {
		return merrors.BackendError{Op: "contentstore.Flush", Err: err}
	}
	tmp := filepath.Join(s.dir, indexFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return merrors.BackendError{Op: "contentstore.Flush", Err: err}
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, indexFileName)); err != nil {
		return merrors.BackendError{Op: "contentstore.Flush", Err: err}
	}
	s.dirty = false
	return nil
}
