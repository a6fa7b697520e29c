package config

import (
	"sort"
	"strings"
)

// Format names a structured text format used for frontmatter and data files.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var formatAliases = map[string]Format{
	"toml": FormatTOML,
	"yaml": FormatYAML,
	"yml":  FormatYAML,
	"json": FormatJSON,
}

// NormalizeFormat case-folds a format name, falling back to TOML.
func NormalizeFormat(raw string) Format {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return f
	}
	return FormatTOML
}

// FormatForExt maps a file extension (with dot) to a format.
func FormatForExt(ext string) (Format, bool) {
	f, ok := formatAliases[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return f, ok
}

// ValidFormats lists accepted format names.
func ValidFormats() []string {
	keys := make([]string, 0, len(formatAliases))
	for k := range formatAliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// NormalizeLogLevel maps free-form input to a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(raw))); l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return l
	case "warning":
		return LogLevelWarn
	default:
		return LogLevelInfo
	}
}
