// Package plugin provides the file-backed command catalogs: a loose
// directory of units and a zip archive with the same layout.
//
// A namespace a.b maps to the directory a/b. Each unit inside is either an
// exec manifest (<name>.yaml or <name>.yml) or a Starlark script
// (<name>.star), and is listed under the id a.b.<name>.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/shellpane/pkg/command"
)

// unitExts are tried in order when a name has more than one unit file.
var unitExts = []string{".yaml", ".yml", ".star"}

// resolveFunc turns a manifest's executable, relative to the unit's
// directory inside the catalog, into a runnable path and working directory.
type resolveFunc func(unitDir, executable string) (execPath, workDir string, err error)

func namespaceDir(namespace string) string {
	if namespace == "" {
		return "."
	}
	return strings.ReplaceAll(namespace, ".", "/")
}

// listUnits returns the ids of units directly under namespace.
func listUnits(fsys fs.FS, namespace string) ([]string, error) {
	dir := namespaceDir(namespace)
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: %w", namespace, err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := path.Ext(name)
		if !isUnitExt(ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if stem == "" || strings.ContainsAny(stem, ". \t") || seen[stem] {
			continue
		}
		seen[stem] = true
		if namespace == "" {
			ids = append(ids, stem)
		} else {
			ids = append(ids, namespace+"."+stem)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func isUnitExt(ext string) bool {
	for _, e := range unitExts {
		if e == ext {
			return true
		}
	}
	return false
}

// loadUnit instantiates the unit for id.
func loadUnit(ctx context.Context, fsys fs.FS, id string, resolve resolveFunc) (any, error) {
	name := command.NameOf(id)
	dir := "."
	if ns := strings.TrimSuffix(id, "."+name); ns != id {
		dir = namespaceDir(ns)
	}

	for _, ext := range unitExts {
		unitPath := path.Join(dir, name+ext)
		data, err := fs.ReadFile(fsys, unitPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}

		if ext == ".star" {
			return LoadScript(ctx, unitPath, data)
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", unitPath, err)
		}
		if manifest.Name == "" {
			manifest.Name = name
		}
		if manifest.Name != name {
			return nil, fmt.Errorf("%s: manifest name %q does not match file name", unitPath, manifest.Name)
		}
		execPath, workDir, err := resolve(dir, manifest.Executable)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", unitPath, err)
		}
		return NewExecCommand(manifest, execPath, workDir), nil
	}
	return nil, fmt.Errorf("%s: no unit file", id)
}

// Select returns the catalog for location: an Archive for a zip file and a
// Dir for anything else, including a path that does not exist yet.
func Select(location string) command.Catalog {
	info, err := os.Stat(location)
	if err == nil && !info.IsDir() && strings.EqualFold(filepath.Ext(location), ".zip") {
		return NewArchive(location)
	}
	return NewDir(location)
}

// ForExecutable picks the plugin location from how the running binary was
// installed: <exe>.zip next to it when present, else <exe-dir>/commands.
func ForExecutable() (command.Catalog, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return Select(executableLocation(exe)), nil
}

func executableLocation(exe string) string {
	archive := strings.TrimSuffix(exe, filepath.Ext(exe)) + ".zip"
	if info, err := os.Stat(archive); err == nil && !info.IsDir() {
		return archive
	}
	return filepath.Join(filepath.Dir(exe), "commands")
}
