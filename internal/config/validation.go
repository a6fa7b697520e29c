package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Validate checks the configuration for values a build cannot proceed with.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateSite,
		c.validateRunners,
		c.validateCopiers,
		c.validateSource,
		c.validateVHosts,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSite() error {
	s := c.Site
	if strings.TrimSpace(s.InputDir) == "" {
		return invalid("site.input_dir is required")
	}
	in, err := filepath.Abs(s.InputDir)
	if err != nil {
		return invalid("site.input_dir cannot be resolved: %v", err)
	}
	out, err := filepath.Abs(s.OutputDir)
	if err != nil {
		return invalid("site.output_dir cannot be resolved: %v", err)
	}
	// A clean build removes output_dir; it must never take the sources with it.
	if in == out || isWithin(in, out) {
		return invalid("site.output_dir %q must not equal or contain site.input_dir %q", s.OutputDir, s.InputDir)
	}
	for role, dir := range map[string]string{"data": s.Dirs.Data, "layouts": s.Dirs.Layouts, "includes": s.Dirs.Includes} {
		if dir == "" {
			return invalid("site.dirs.%s must not be empty", role)
		}
		if filepath.IsAbs(dir) || strings.HasPrefix(filepath.Clean(dir), "..") {
			return invalid("site.dirs.%s must be relative to input_dir, got %q", role, dir)
		}
	}
	return nil
}

func (c *Config) validateRunners() error {
	for _, r := range append(append([]Runner{}, c.Runners.PreBuild...), c.Runners.PostBuild...) {
		if strings.TrimSpace(r.Command) == "" {
			return invalid("runner command cannot be empty")
		}
	}
	return nil
}

func (c *Config) validateCopiers() error {
	for i, cp := range c.Copiers {
		if cp.InputDir == "" || cp.Output == "" {
			return invalid("copiers[%d]: input_dir and output are required", i)
		}
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source == nil {
		return nil
	}
	if c.Source.GitURL == "" {
		return invalid("source.git_url is required when source is set")
	}
	if a := c.Source.Auth; a != nil {
		switch a.Type {
		case "", "none", "ssh":
		case "token":
			if a.Token == "" {
				return invalid("source.auth: token authentication requires a token")
			}
		case "basic":
			if a.Username == "" || a.Password == "" {
				return invalid("source.auth: basic authentication requires username and password")
			}
		default:
			return invalid("source.auth: unsupported type %q", a.Type)
		}
	}
	return nil
}

func (c *Config) validateVHosts() error {
	seen := make(map[string]bool)
	for i, vh := range c.VHosts {
		if strings.TrimSpace(vh.Host) == "" {
			return invalid("vhosts[%d]: host is required", i)
		}
		host := strings.ToLower(vh.Host)
		if seen[host] {
			return invalid("duplicate vhost: %s", vh.Host)
		}
		seen[host] = true
		for _, m := range vh.Files {
			if !strings.HasPrefix(m.Mount, "/") {
				return invalid("vhost %s: mount %q must start with /", vh.Host, m.Mount)
			}
			if m.FileDir == "" {
				return invalid("vhost %s: mount %q has no file_dir", vh.Host, m.Mount)
			}
		}
		for _, r := range vh.Redir {
			if !strings.HasPrefix(r.Target, "/") {
				return invalid("vhost %s: redirect target %q must start with /", vh.Host, r.Target)
			}
			if r.Dest == "" {
				return invalid("vhost %s: redirect %q has no dest", vh.Host, r.Target)
			}
		}
		if vh.TLS != nil && len(vh.TLS.PEMFiles) == 0 {
			return invalid("vhost %s: tls requires at least one pemfile", vh.Host)
		}
	}
	return nil
}

// isWithin reports whether path lies strictly below dir.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func invalid(format string, args ...any) error {
	return errors.ConfigError(fmt.Sprintf(format, args...)).Build()
}
