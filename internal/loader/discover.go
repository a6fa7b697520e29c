// Package loader discovers input files and turns them into pages.
package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Discover walks the input root and returns the slash-separated relative paths
// of every candidate input file, sorted. Dotfiles, the data/layout/include role
// directories and a nested output directory are skipped.
func Discover(cfg config.SiteConfig) ([]string, error) {
	root := cfg.InputDir
	skipDirs := map[string]bool{
		filepath.Clean(cfg.DataDir()):    true,
		filepath.Clean(cfg.LayoutDir()):  true,
		filepath.Clean(cfg.IncludeDir()): true,
	}
	absOut, _ := filepath.Abs(cfg.OutputDir)

	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if skipDirs[filepath.Clean(p)] {
				return filepath.SkipDir
			}
			if abs, absErr := filepath.Abs(p); absErr == nil && abs == absOut {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("input directory not found").WithFile(root).WithCause(err).Build()
		}
		return nil, errors.IOError("unable to walk input directory").WithFile(root).WithCause(err).Build()
	}
	sort.Strings(files)
	return files, nil
}
