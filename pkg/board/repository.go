package board

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// ErrNotFound is returned when a board name is not registered.
var ErrNotFound = errors.New("board: not found")

// Repository knows how to look up board catalogs by name.
type Repository interface {
	Lookup(name string) (*Board, error)
	Names() []string
}

// MemoryRepository keeps loaded boards in memory. It is safe for concurrent
// use; boards stored in it must be treated as read-only.
type MemoryRepository struct {
	boards *xsync.Map[string, *Board]
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{boards: xsync.NewMap[string, *Board]()}
}

// Add registers b under its name, replacing any earlier board of that name.
func (r *MemoryRepository) Add(b *Board) error {
	if b == nil || b.Name == "" {
		return fmt.Errorf("board: cannot register unnamed board")
	}
	r.boards.Store(b.Name, b)
	return nil
}

// Lookup implements the Repository interface.
func (r *MemoryRepository) Lookup(name string) (*Board, error) {
	if b, ok := r.boards.Load(name); ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Names returns the registered board names, sorted.
func (r *MemoryRepository) Names() []string {
	names := make([]string, 0, r.boards.Size())
	r.boards.Range(func(name string, _ *Board) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

// LoadFiles parses the provided catalog files and registers each board.
func (r *MemoryRepository) LoadFiles(paths ...string) error {
	for _, path := range paths {
		b, err := LoadFile(path)
		if err != nil {
			return err
		}
		if err := r.Add(b); err != nil {
			return fmt.Errorf("board: add %s: %w", path, err)
		}
	}
	return nil
}

// LoadDir recursively loads all .yaml/.yml catalogs below root.
func (r *MemoryRepository) LoadDir(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !isCatalogFile(path) {
			return nil
		}
		return r.LoadFiles(path)
	})
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
