// Package output renders command results as YAML or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// format is set by the root command's --format flag.
var format = FormatYAML

// SetFormat sets the format used by Print.
func SetFormat(name string) error {
	switch f := Format(name); f {
	case FormatYAML, FormatJSON:
		format = f
		return nil
	default:
		return fmt.Errorf("unknown output format %q: want yaml or json", name)
	}
}

// Print writes data to stdout in the configured format.
func Print(data any) error {
	return To(os.Stdout, format, data)
}

// To writes data to the given writer in the specified format.
func To(w io.Writer, f Format, data any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", f)
	}
}
