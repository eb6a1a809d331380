package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct {
	// Document prefixes the output with "---" so consecutive values form a
	// valid multi-document stream.
	Document bool
}

// Format formats data as YAML.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	if f.Document {
		if _, err := io.WriteString(w, "---\n"); err != nil {
			return err
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
