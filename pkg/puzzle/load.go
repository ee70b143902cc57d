package puzzle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a definition file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported puzzle file extension: %s", filepath.Ext(path))
	}
}

// Load reads, normalizes and validates a definition file.
func Load(path string) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("puzzle file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}

	return Parse(data, format)
}

// Parse decodes a definition, then normalizes and validates it.
func Parse(data []byte, format Format) (*Definition, error) {
	return parse(data, format, false)
}

// ParseStrict is Parse but rejects unknown fields.
func ParseStrict(data []byte, format Format) (*Definition, error) {
	return parse(data, format, true)
}

func parse(data []byte, format Format, strict bool) (*Definition, error) {
	var d Definition

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal puzzle JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(strict)
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal puzzle YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported puzzle format: %q", format)
	}

	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Normalize trims identifiers, converts all display text to Unicode NFC so
// composed and decomposed spellings compare equal, and assigns ids to pool
// tokens that were declared without one.
func (d *Definition) Normalize() {
	d.ID = strings.TrimSpace(d.ID)
	d.Title = norm.NFC.String(d.Title)
	d.Briefing = norm.NFC.String(d.Briefing)

	for i := range d.Sentences {
		segs := d.Sentences[i].Segments
		for j := range segs {
			segs[j].Kind = SegmentKind(strings.ToLower(strings.TrimSpace(string(segs[j].Kind))))
			segs[j].Text = norm.NFC.String(segs[j].Text)
			segs[j].BlankID = strings.TrimSpace(segs[j].BlankID)
			segs[j].Expected = norm.NFC.String(strings.TrimSpace(segs[j].Expected))
		}
	}

	for i := range d.Pool {
		d.Pool[i].ID = strings.TrimSpace(d.Pool[i].ID)
		if d.Pool[i].ID == "" {
			d.Pool[i].ID = uuid.NewString()
		}
		d.Pool[i].Value = norm.NFC.String(strings.TrimSpace(d.Pool[i].Value))
	}
}
