package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// normalizeStructured pretty-prints a structured document and turns each
// output line into a single-column row. Malformed documents never fail:
// they are re-read from data as plain text.
func normalizeStructured(logger *slog.Logger, name string, data []byte, ext string) (*NormalizedFile, error) {
	text, err := io.ReadAll(NewTextReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	var pretty string
	switch ext {
	case ".json":
		pretty, err = prettyJSON(text)
	case ".yaml", ".yml":
		pretty, err = prettyYAML(text)
	case ".toml":
		pretty, err = prettyTOML(text)
	default:
		err = fmt.Errorf("no structured decoder for %s", ext)
	}
	if err != nil {
		logger.Warn("malformed structured document, parsing as text",
			"file", name,
			"error", err,
		)
		return normalizeText(bytes.NewReader(data))
	}

	if pretty == "" {
		return &NormalizedFile{}, nil
	}
	return linesToFile(strings.Split(pretty, "\n")), nil
}

// prettyJSON re-indents a single JSON value. Keys stay in document order
// and string escapes are kept as written.
func prettyJSON(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return "", err
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("unexpected data after top-level value")
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func prettyYAML(data []byte) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	if doc.Kind == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func prettyTOML(data []byte) (string, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = "  "
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
