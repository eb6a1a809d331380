package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: " yaml ", want: FormatYAML},
		{in: "raw", want: FormatRaw},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json should give a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml should give a YAMLFormatter")
	}
	tf, ok := NewFormatter(FormatRaw, true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Error("raw should fall back to a wide TableFormatter")
	}
}

type pingResult struct {
	Addr    string `json:"addr" yaml:"addr"`
	Reply   string `json:"reply" yaml:"reply"`
	Latency string `json:"latency_ms" yaml:"latency_ms" table:"wide"`
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{Indent: true}).Format(&buf, pingResult{Addr: "a:1", Reply: "pong"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"reply": "pong"`) {
		t.Errorf("indented JSON = %s", buf.String())
	}

	buf.Reset()
	if err := (&JSONFormatter{}).Format(&buf, pingResult{Addr: "a:1"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("compact JSON should be one line: %q", buf.String())
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLFormatter{}).Format(&buf, pingResult{Addr: "localhost", Reply: "pong"}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "addr: localhost\nreply: pong\nlatency_ms: \"\"\n"
	if buf.String() != want {
		t.Errorf("YAML = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := (&YAMLFormatter{Document: true}).Format(&buf, map[string]int{"n": 1}); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf.String() != "---\nn: 1\n" {
		t.Errorf("YAML document = %q", buf.String())
	}
}
