package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Dir is a catalog backed by a directory tree on disk.
type Dir struct {
	root string
}

// NewDir creates a catalog rooted at root. The directory is not read until
// List is called.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Name implements command.Catalog.
func (d *Dir) Name() string {
	return "dir:" + d.root
}

// Root returns the catalog directory.
func (d *Dir) Root() string {
	return d.root
}

// List implements command.Catalog.
func (d *Dir) List(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(d.root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", d.root)
	}
	return listUnits(os.DirFS(d.root), namespace)
}

// Load implements command.Catalog.
func (d *Dir) Load(ctx context.Context, id string) (any, error) {
	return loadUnit(ctx, os.DirFS(d.root), id, d.resolve)
}

func (d *Dir) resolve(unitDir, executable string) (string, string, error) {
	workDir := filepath.Join(d.root, filepath.FromSlash(unitDir))
	execPath := executable
	if !filepath.IsAbs(executable) {
		execPath = filepath.Join(workDir, filepath.FromSlash(executable))
	}
	if err := checkExecutable(execPath); err != nil {
		return "", "", err
	}
	return execPath, workDir, nil
}
