package plugin

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Archive is a catalog backed by a zip file. Executables referenced by
// manifests are extracted to a private temp directory on first load.
type Archive struct {
	path string

	mu      sync.Mutex
	reader  *zip.ReadCloser
	openErr error
	tmpDir  string
}

// NewArchive creates a catalog for the zip at path. The file is not opened
// until List or Load is called.
func NewArchive(path string) *Archive {
	return &Archive{path: path}
}

// Name implements command.Catalog.
func (a *Archive) Name() string {
	return "zip:" + a.path
}

// List implements command.Catalog.
func (a *Archive) List(ctx context.Context, namespace string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := a.open()
	if err != nil {
		return nil, err
	}
	return listUnits(r, namespace)
}

// Load implements command.Catalog.
func (a *Archive) Load(ctx context.Context, id string) (any, error) {
	r, err := a.open()
	if err != nil {
		return nil, err
	}
	return loadUnit(ctx, r, id, a.resolve)
}

// Close releases the zip file and removes extracted executables.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	if a.reader != nil {
		err = a.reader.Close()
		a.reader = nil
	}
	if a.tmpDir != "" {
		if rmErr := os.RemoveAll(a.tmpDir); err == nil {
			err = rmErr
		}
		a.tmpDir = ""
	}
	return err
}

func (a *Archive) open() (*zip.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reader == nil && a.openErr == nil {
		a.reader, a.openErr = zip.OpenReader(a.path)
	}
	return a.reader, a.openErr
}

func (a *Archive) resolve(unitDir, executable string) (string, string, error) {
	if filepath.IsAbs(executable) {
		if err := checkExecutable(executable); err != nil {
			return "", "", err
		}
		return executable, "", nil
	}

	name := path.Clean(path.Join(unitDir, filepath.ToSlash(executable)))
	if name == ".." || strings.HasPrefix(name, "../") {
		return "", "", fmt.Errorf("executable %q escapes the archive", executable)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reader == nil {
		return "", "", fmt.Errorf("archive %s is closed", a.path)
	}
	if a.tmpDir == "" {
		dir, err := os.MkdirTemp("", "shellpane-plugins-*")
		if err != nil {
			return "", "", err
		}
		a.tmpDir = dir
	}

	dest := filepath.Join(a.tmpDir, filepath.FromSlash(name))
	if _, err := os.Stat(dest); err == nil {
		return dest, filepath.Dir(dest), nil
	}
	if err := extract(a.reader, name, dest); err != nil {
		return "", "", err
	}
	return dest, filepath.Dir(dest), nil
}

func extract(r *zip.ReadCloser, name, dest string) error {
	src, err := r.Open(name)
	if err != nil {
		return fmt.Errorf("executable %s: %w", name, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
