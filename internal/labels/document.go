package labels

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xelth-com/clamflow-labels/internal/models"
	"gopkg.in/yaml.v3"
)

// DocumentFormat is the file format of an imported or exported template.
type DocumentFormat string

const (
	DocumentJSON DocumentFormat = "json"
	DocumentYAML DocumentFormat = "yaml"
)

// ParseDocumentFormat accepts json, yaml and yml in any case.
func ParseDocumentFormat(s string) (DocumentFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return DocumentJSON, nil
	case "yaml", "yml":
		return DocumentYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// DecodeTemplate reads a template document. YAML is normalised through JSON
// so both formats share one set of field rules.
func DecodeTemplate(data []byte, format DocumentFormat) (models.Template, error) {
	var tpl models.Template
	raw := data
	if format == DocumentYAML {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return tpl, fmt.Errorf("decode yaml template: %w", err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return tpl, fmt.Errorf("decode yaml template: %w", err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return tpl, fmt.Errorf("decode template: %w", err)
	}
	return tpl, nil
}

// EncodeTemplate writes a template document. YAML output keeps the JSON
// key order.
func EncodeTemplate(tpl models.Template, format DocumentFormat) ([]byte, error) {
	if format != DocumentYAML {
		return json.MarshalIndent(tpl, "", "  ")
	}

	b, err := json.Marshal(tpl)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, fmt.Errorf("encode yaml template: %w", err)
	}
	blockStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// blockStyle clears the flow and quoting styles JSON input leaves behind.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
