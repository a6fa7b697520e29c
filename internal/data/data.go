// Package data loads the site's structured data directory.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Load reads every .toml, .yaml, .yml and .json file below dir into a record
// named by its slash-separated relative path without extension. A file that
// fails to parse is dropped with a warning; a missing dir yields no records.
func Load(ctx context.Context, dir string) ([]site.DataRecord, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.IOError("unable to stat data directory").WithFile(dir).WithCause(err).Build()
	}
	if !info.IsDir() {
		return nil, errors.IOError("data path is not a directory").WithFile(dir).Build()
	}

	var records []site.DataRecord
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		format, ok := config.FormatForExt(filepath.Ext(p))
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		raw, err := os.ReadFile(p)
		if err != nil {
			return errors.IOError("unable to read data file").WithFile(p).WithCause(err).Build()
		}
		values, err := decode(raw, format)
		if err != nil {
			slog.Warn("Dropping unparseable data file", logfields.File(p), logfields.Error(err))
			return nil
		}
		records = append(records, site.DataRecord{
			Name:   strings.TrimSuffix(rel, path.Ext(rel)),
			Values: values,
		})
		return nil
	})
	if walkErr != nil {
		if _, ok := errors.AsClassified(walkErr); ok {
			return nil, walkErr
		}
		return nil, errors.IOError("unable to walk data directory").WithFile(dir).WithCause(walkErr).Build()
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	slog.Debug("Loaded data records", logfields.Path(dir), logfields.Count(len(records)))
	return records, nil
}

func decode(raw []byte, format config.Format) (map[string]any, error) {
	values := map[string]any{}
	var err error
	switch format {
	case config.FormatTOML:
		_, err = toml.Decode(string(raw), &values)
	case config.FormatYAML:
		err = yaml.Unmarshal(raw, &values)
	case config.FormatJSON:
		err = json.Unmarshal(raw, &values)
	default:
		err = fmt.Errorf("unsupported data format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}
