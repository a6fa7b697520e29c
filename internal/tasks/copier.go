package tasks

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// CopyResult counts what a copier did.
type CopyResult struct {
	Copied  int
	Skipped int
	Bytes   int64
}

// Copy copies the contents of c.InputDir into c.Output. Existing files are
// left alone unless c.Overwrite is set.
func Copy(c config.Copier) (CopyResult, error) {
	slog.Info("Copying directory", logfields.Path(c.InputDir), logfields.Output(c.Output))

	var res CopyResult
	err := filepath.WalkDir(c.InputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.InputDir, p)
		if err != nil {
			return err
		}
		dst := filepath.Join(c.Output, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !c.Overwrite {
			if _, err := os.Lstat(dst); err == nil {
				res.Skipped++
				return nil
			}
		}
		n, err := copyFile(p, dst)
		if err != nil {
			return err
		}
		res.Copied++
		res.Bytes += n
		return nil
	})
	if err != nil {
		return res, errors.IOError("copier failed").WithFile(c.InputDir).WithContext(logfields.KeyOutput, c.Output).WithCause(err).Build()
	}
	slog.Debug("Copy finished", logfields.Path(c.InputDir), logfields.Count(res.Copied), slog.Int("skipped", res.Skipped))
	return res, nil
}

// CopyAll runs every copier in order.
func CopyAll(copiers []config.Copier) error {
	for _, c := range copiers {
		if _, err := Copy(c); err != nil {
			return err
		}
	}
	return nil
}

// copyFile writes src to a temporary file next to dst and renames it into
// place. dst may be a hard link into the input tree; it is replaced, never
// written through.
func copyFile(src, dst string) (n int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if n, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err = tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err = tmp.Close(); err != nil {
		return 0, err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return n, nil
}
