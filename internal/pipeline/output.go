package pipeline

import (
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Clean removes the output tree and recreates an empty root so files from a
// previous build's extension mapping never survive.
func Clean(outDir string) error {
	if err := os.RemoveAll(outDir); err != nil {
		return errors.IOError("unable to remove output directory").WithFile(outDir).WithCause(err).Build()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.IOError("unable to create output directory").WithFile(outDir).WithCause(err).Build()
	}
	return nil
}

// WritePage writes the page's final content to outDir/OutputPath.
func WritePage(outDir string, p site.Page) (string, error) {
	dst := filepath.Join(outDir, filepath.FromSlash(p.OutputPath()))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return dst, errors.IOError("unable to create output directory").WithFile(dst).WithCause(err).Build()
	}
	if err := os.WriteFile(dst, []byte(p.Content), 0o644); err != nil {
		return dst, errors.IOError("unable to write page").WithFile(dst).WithCause(err).Build()
	}
	return dst, nil
}

// PropagateResult says what Propagate did for one file.
type PropagateResult int

const (
	PropagateSkipped PropagateResult = iota // output path already occupied
	PropagateLinked
	PropagateCopied
)

// Propagate places inDir/rel at outDir/rel unless something already exists
// there. It hard links first and falls back to a byte copy.
func Propagate(inDir, outDir, rel string) (PropagateResult, error) {
	src := filepath.Join(inDir, filepath.FromSlash(rel))
	dst := filepath.Join(outDir, filepath.FromSlash(rel))

	if _, err := os.Lstat(dst); err == nil {
		return PropagateSkipped, nil
	} else if !os.IsNotExist(err) {
		return PropagateSkipped, errors.IOError("unable to stat output file").WithFile(dst).WithCause(err).Build()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return PropagateSkipped, errors.IOError("unable to create output directory").WithFile(dst).WithCause(err).Build()
	}
	if err := os.Link(src, dst); err == nil {
		return PropagateLinked, nil
	}
	if err := copyFile(src, dst); err != nil {
		return PropagateSkipped, errors.IOError("unable to copy file").WithFile(src).WithContext("dest", dst).WithCause(err).Build()
	}
	return PropagateCopied, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
