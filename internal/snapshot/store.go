package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

const (
	currentDir = "current"
	diffDir    = "diff"
)

// ErrDuplicateIdentity is returned when two variants resolve to the same
// snapshot identity within one run. This is a configuration error.
var ErrDuplicateIdentity = errors.New("duplicate snapshot identity")

// Store owns the on-disk snapshot layout. Baselines live directly under the
// root directory; current and diff images live in reserved subfolders so
// they can never collide with baseline filenames.
type Store struct {
	root string
}

// NewStore creates a store rooted at the given directory, creating the
// root and its current/ and diff/ subfolders if needed. Creation is
// idempotent and tolerates concurrent callers.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, currentDir), filepath.Join(root, diffDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the snapshot root directory.
func (s *Store) Root() string {
	return s.root
}

// Paths resolves the three image paths for an identity.
func (s *Store) Paths(id Identity) Paths {
	name := id.FileName()
	return Paths{
		Baseline: filepath.Join(s.root, name),
		Current:  filepath.Join(s.root, currentDir, name),
		Diff:     filepath.Join(s.root, diffDir, name),
	}
}

// BaselineExists reports whether a baseline image is present for id.
func (s *Store) BaselineExists(id Identity) bool {
	_, err := os.Stat(s.Paths(id).Baseline)
	return err == nil
}

// WriteCurrent overwrites the current image for id with raw PNG data.
func (s *Store) WriteCurrent(id Identity, data []byte) error {
	if err := os.WriteFile(s.Paths(id).Current, data, 0644); err != nil {
		return fmt.Errorf("write current image: %w", err)
	}
	return nil
}

// PromoteCurrent copies the current image over the baseline for id. It is
// the only store operation that writes to the baseline location.
func (s *Store) PromoteCurrent(id Identity) error {
	paths := s.Paths(id)
	if err := copyFile(paths.Current, paths.Baseline); err != nil {
		return fmt.Errorf("promote %s: %w", id, err)
	}
	return nil
}

// CurrentExists reports whether a current image is present for id.
func (s *Store) CurrentExists(id Identity) bool {
	_, err := os.Stat(s.Paths(id).Current)
	return err == nil
}

// RemoveBaseline deletes the baseline image for id, along with any stale
// current and diff images for the same identity.
func (s *Store) RemoveBaseline(id Identity) error {
	paths := s.Paths(id)
	if err := os.Remove(paths.Baseline); err != nil {
		return fmt.Errorf("remove baseline %s: %w", id, err)
	}
	// Companions are best-effort; they may legitimately not exist.
	os.Remove(paths.Current)
	os.Remove(paths.Diff)
	return nil
}

// RemoveDiff deletes the diff image for id if present.
func (s *Store) RemoveDiff(id Identity) error {
	err := os.Remove(s.Paths(id).Diff)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove diff %s: %w", id, err)
	}
	return nil
}

// ListBaselines returns the identities of all baseline images under the
// root, sorted by identity string. Files that do not parse as snapshot
// names are ignored.
func (s *Store) ListBaselines() ([]Identity, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var ids []Identity
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := ParseFileName(entry.Name()); ok {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	return ids, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
