package templating

import (
	"fmt"
	"strings"
)

type includeParam struct {
	key  string
	expr string
}

// parseIncludeArgs splits `name key=expr key2="lit"` into the include name and
// its parameters. Quoted names are unquoted.
func parseIncludeArgs(args string) (string, []includeParam, error) {
	fields, err := splitArgs(args)
	if err != nil {
		return "", nil, err
	}
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("include: missing template name")
	}

	name := unquote(fields[0])
	params := make([]includeParam, 0, len(fields)-1)
	for _, f := range fields[1:] {
		key, expr, ok := strings.Cut(f, "=")
		if !ok || key == "" || expr == "" {
			return "", nil, fmt.Errorf("include %s: malformed parameter %q", name, f)
		}
		params = append(params, includeParam{key: key, expr: expr})
	}
	return name, params, nil
}

// splitArgs splits on whitespace outside of single or double quotes.
func splitArgs(s string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
		quote  rune
	)
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("include: unterminated quote in %q", s)
	}
	flush()
	return fields, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
