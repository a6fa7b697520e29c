package config

import (
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultFile is the configuration file looked up when --config is not given.
const DefaultFile = "sitebuilder.yaml"

// Config represents the complete sitebuilder configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Runners RunnersConfig `yaml:"runners,omitempty"`
	Copiers []Copier      `yaml:"copiers,omitempty"`
	Source  *SourceConfig `yaml:"source,omitempty"`
	State   StateConfig   `yaml:"state,omitempty"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	VHosts  []VHost       `yaml:"vhosts,omitempty"`
}

// SiteConfig drives the build pipeline.
type SiteConfig struct {
	InputDir           string          `yaml:"input_dir"`
	OutputDir          string          `yaml:"output_dir"`
	Renderers          Renderers       `yaml:"renderers"`
	Dirs               Dirs            `yaml:"dirs"`
	DefaultVars        Vars            `yaml:"default_vars,omitempty"`
	FrontmatterFormat  Format          `yaml:"frontmatter_format"`
	FragmentExtensions []string        `yaml:"fragment_extensions"`
	SkipFragments      bool            `yaml:"skip_fragments"`
	StrictVariables    bool            `yaml:"strict_variables"`
	Workers            int             `yaml:"workers"`
	Markdown           MarkdownOptions `yaml:"markdown"`
	CheckLinks         bool            `yaml:"check_links"`
}

// Renderers toggles each pipeline stage independently.
type Renderers struct {
	Data       bool `yaml:"data"`
	Template   bool `yaml:"template"`
	Stylesheet bool `yaml:"stylesheet"`
	Markdown   bool `yaml:"markdown"`
	Sanitizer  bool `yaml:"sanitizer"`
	Layout     bool `yaml:"layout"`
}

// Dirs names the role subdirectories of the input tree.
type Dirs struct {
	Data     string `yaml:"data"`
	Layouts  string `yaml:"layouts"`
	Includes string `yaml:"includes"`
}

// MarkdownOptions tunes the markdown renderer.
type MarkdownOptions struct {
	HeadingIDs      bool   `yaml:"heading_ids"`
	HeadingIDPrefix string `yaml:"heading_id_prefix,omitempty"`
	UnsafeHTML      bool   `yaml:"unsafe_html"`
}

// RunnersConfig lists commands executed around a build.
type RunnersConfig struct {
	PreBuild  []Runner `yaml:"pre_build,omitempty"`
	PostBuild []Runner `yaml:"post_build,omitempty"`
}

// Runner is an external command with arguments.
type Runner struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// Copier copies the contents of InputDir into Output after the build.
type Copier struct {
	InputDir  string `yaml:"input_dir"`
	Output    string `yaml:"output"`
	Overwrite bool   `yaml:"overwrite"`
}

// SourceConfig makes the input tree a git checkout.
type SourceConfig struct {
	GitURL string      `yaml:"git_url"`
	Branch string      `yaml:"branch,omitempty"`
	Depth  int         `yaml:"depth,omitempty"`
	Auth   *SourceAuth `yaml:"auth,omitempty"`
}

// SourceAuth holds credentials for the source remote. Secrets are usually
// given as ${VAR} references resolved from the environment.
type SourceAuth struct {
	Type     string `yaml:"type"` // none|token|basic|ssh
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
}

// StateConfig locates the build history database.
type StateConfig struct {
	DBPath string `yaml:"db_path,omitempty"`
}

// NotifyConfig configures build event publishing.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// ServerConfig configures the static file server.
type ServerConfig struct {
	HTTPBind    []string          `yaml:"http_bind,omitempty"`
	TLSBind     []string          `yaml:"tls_bind,omitempty"`
	MetricsBind string            `yaml:"metrics_bind,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	LogRequests bool              `yaml:"log_requests"`
}

// VHost is one virtual host served by the file server.
type VHost struct {
	Host  string     `yaml:"host"`
	Files []Mount    `yaml:"files,omitempty"`
	Redir []Redirect `yaml:"redir,omitempty"`
	TLS   *TLS       `yaml:"tls,omitempty"`
}

// Mount serves FileDir under the URL prefix Mount.
type Mount struct {
	Mount   string `yaml:"mount"`
	FileDir string `yaml:"file_dir"`
}

// Redirect sends Target (and everything below it) to Dest.
type Redirect struct {
	Target    string `yaml:"target"`
	Dest      string `yaml:"dest"`
	Permanent bool   `yaml:"permanent"`
}

// TLS holds a vhost's certificate material.
type TLS struct {
	PEMFiles []string `yaml:"pemfiles"`
	HTTPDest string   `yaml:"http_dest,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			OutputDir: "_site",
			Renderers: Renderers{
				Data:       true,
				Template:   true,
				Stylesheet: true,
				Markdown:   true,
				Layout:     true,
			},
			Dirs: Dirs{
				Data:     "_data",
				Layouts:  "_layouts",
				Includes: "_includes",
			},
			FrontmatterFormat:  FormatTOML,
			FragmentExtensions: []string{".liquid"},
			SkipFragments:      true,
			Workers:            runtime.NumCPU(),
			Markdown:           MarkdownOptions{UnsafeHTML: true},
		},
		Notify: NotifyConfig{Subject: "sitebuilder.builds"},
		Server: ServerConfig{LogRequests: true},
	}
}

// Load reads, expands, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("configuration file not found").WithFile(configPath).Build()
		}
		return nil, errors.IOError("failed to read config file").WithFile(configPath).WithCause(err).Build()
	}
	return Parse(data, configPath)
}

// Parse decodes configuration bytes over the defaults.
func Parse(data []byte, name string) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.DataError("failed to parse config").WithFile(name).WithCause(err).Build()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Site.FrontmatterFormat = NormalizeFormat(string(c.Site.FrontmatterFormat))
	if c.Site.Workers <= 0 {
		c.Site.Workers = runtime.NumCPU()
	}
	if c.Site.OutputDir == "" {
		c.Site.OutputDir = "_site"
	}
	for i, ext := range c.Site.FragmentExtensions {
		if ext != "" && ext[0] != '.' {
			c.Site.FragmentExtensions[i] = "." + ext
		}
	}
	if c.Source != nil && c.Source.Depth < 0 {
		c.Source.Depth = 0
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "sitebuilder.builds"
	}
}

// DataDir returns the absolute-or-relative data directory under the input root.
func (s SiteConfig) DataDir() string { return filepath.Join(s.InputDir, s.Dirs.Data) }

// LayoutDir returns the layout directory under the input root.
func (s SiteConfig) LayoutDir() string { return filepath.Join(s.InputDir, s.Dirs.Layouts) }

// IncludeDir returns the include directory under the input root.
func (s SiteConfig) IncludeDir() string { return filepath.Join(s.InputDir, s.Dirs.Includes) }

// IsFragment reports whether a file extension marks an include/layout-only fragment.
func (s SiteConfig) IsFragment(ext string) bool {
	if !s.SkipFragments {
		return false
	}
	for _, f := range s.FragmentExtensions {
		if f == ext {
			return true
		}
	}
	return false
}
