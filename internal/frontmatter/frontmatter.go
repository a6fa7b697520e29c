package frontmatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
)

const delimiter = "---"

// ErrMissingClosingDelimiter indicates the document started with a frontmatter
// delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("frontmatter start delimiter found but closing delimiter is missing")

// Split separates a `---` delimited frontmatter block from the body.
//
// The opening delimiter must be the first line. The block ends at the next line
// that is exactly `---` (LF or CRLF); both delimiter lines are discarded. If the
// document does not start with a delimiter, had is false and body is the full
// input.
func Split(content []byte) (block []byte, body []byte, had bool, err error) {
	line, rest, ok := cutLine(content)
	if !ok || string(line) != delimiter {
		return nil, content, false, nil
	}

	start := len(content) - len(rest)
	for pos := start; pos < len(content); {
		line, next, _ := cutLine(content[pos:])
		if string(line) == delimiter {
			return content[start:pos], next, true, nil
		}
		pos = len(content) - len(next)
	}
	return nil, content, false, ErrMissingClosingDelimiter
}

// cutLine returns the first line without its terminator, and what follows it.
// A final line without a newline still counts. found is false for empty input.
func cutLine(b []byte) (line, rest []byte, found bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return bytes.TrimSuffix(b, []byte("\r")), nil, true
	}
	return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:], true
}

// Parse decodes a frontmatter block into a map using format.
func Parse(block []byte, format config.Format) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(block)) == 0 {
		return fields, nil
	}

	var err error
	switch format {
	case config.FormatYAML:
		err = yaml.Unmarshal(block, &fields)
	case config.FormatJSON:
		err = json.Unmarshal(block, &fields)
	case config.FormatTOML, "":
		_, err = toml.Decode(string(block), &fields)
	default:
		return nil, fmt.Errorf("unsupported frontmatter format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}
