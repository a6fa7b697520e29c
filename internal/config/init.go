package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").WithFile(configPath).Build()
	}

	example := Default()
	example.Site.InputDir = "site"
	example.Site.Workers = 0
	example.Site.DefaultVars = Vars{
		{Key: "site_title", Value: "My Site"},
		{Key: "lang", Value: "en"},
	}
	example.Server = ServerConfig{
		HTTPBind:    []string{":8080"},
		MetricsBind: "127.0.0.1:9090",
		Headers:     map[string]string{"X-Content-Type-Options": "nosniff"},
		LogRequests: true,
	}
	example.VHosts = []VHost{{
		Host:  "localhost",
		Files: []Mount{{Mount: "/", FileDir: "_site"}},
		Redir: []Redirect{{Target: "/old", Dest: "/new", Permanent: true}},
	}}

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.InternalError("failed to marshal example config").WithCause(err).Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.IOError("failed to write config file").WithFile(configPath).WithCause(err).Build()
	}
	return nil
}
