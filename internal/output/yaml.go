package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes one YAML sequence document with two-space indentation.
type YAMLWriter struct {
	document
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{newDocument(w, encodeYAML)}
}

func encodeYAML(out io.Writer, items []any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return err
	}
	return enc.Close()
}
