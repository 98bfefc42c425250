// Package frontmatter splits and parses `---` delimited YAML front matter
// from content bodies.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates content started with a front matter
// delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter opening delimiter found but closing delimiter is missing")

var delimiter = []byte("---")

// Split separates YAML front matter from the body. When the content does not
// start with a `---` line, had is false and body is the full input. Both \n
// and \r\n line endings are recognized.
func Split(content []byte) (meta []byte, body []byte, had bool, err error) {
	rest, ok := cutLine(content, delimiter)
	if !ok {
		return nil, content, false, nil
	}

	offset := len(content) - len(rest)
	for len(rest) > 0 {
		line, next := nextLine(rest)
		if bytes.Equal(trimCR(line), delimiter) {
			return content[offset : len(content)-len(rest)], next, true, nil
		}
		rest = next
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// Parse unmarshals raw front matter (without delimiters) into a map. Empty
// input yields an empty, non-nil map.
func Parse(meta []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(meta)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(meta, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Serialize marshals fields into YAML bytes without delimiters. Keys are
// emitted in sorted order (yaml.v3 behavior for string maps), keeping output
// stable across passes.
func Serialize(fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	return yaml.Marshal(fields)
}

// Compose reassembles front matter and body into delimited content. A nil or
// empty meta returns the body unchanged.
func Compose(meta, body []byte) []byte {
	if len(meta) == 0 {
		return body
	}
	out := make([]byte, 0, len(meta)+len(body)+8)
	out = append(out, delimiter...)
	out = append(out, '\n')
	out = append(out, meta...)
	if len(meta) > 0 && meta[len(meta)-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, delimiter...)
	out = append(out, '\n')
	return append(out, body...)
}

// cutLine consumes a leading line equal to want (modulo a trailing \r) and
// returns the remainder.
func cutLine(content, want []byte) ([]byte, bool) {
	line, rest := nextLine(content)
	if !bytes.Equal(trimCR(line), want) {
		return nil, false
	}
	// A bare "---" with no newline is an opening delimiter for an empty,
	// unterminated block.
	if len(line) == len(content) {
		return nil, false
	}
	return rest, true
}

// nextLine splits content at the first newline. The returned line excludes
// the newline byte.
func nextLine(content []byte) (line, rest []byte) {
	if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
		return content[:idx], content[idx+1:]
	}
	return content, nil
}

func trimCR(line []byte) []byte {
	return bytes.TrimSuffix(line, []byte("\r"))
}
