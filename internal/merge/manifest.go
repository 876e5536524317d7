package merge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is returned when a manifest does not match manifestSchema.
var ErrInvalidManifest = errors.New("invalid manifest")

// manifestSchema describes a merge manifest. Page specs are not checked here:
// a bad spec only skips its own input at run time.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["inputs"],
  "additionalProperties": false,
  "properties": {
    "output": {"type": "string", "minLength": 1},
    "inputs": {
      "type": "array",
      "minItems": 1,
      "items": {
        "oneOf": [
          {"type": "string", "minLength": 1},
          {
            "type": "object",
            "required": ["path"],
            "additionalProperties": false,
            "properties": {
              "path": {"type": "string", "minLength": 1},
              "pages": {"type": "string"}
            }
          }
        ]
      }
    }
  }
}`

// Manifest is an ordered merge-mode input list stored in a YAML or JSON file.
//
//	output: book.pdf
//	inputs:
//	  - cover.png
//	  - path: scans/part-1.pdf
//	    pages: "[1,3:5]"
//	  - "scans/part-2.pdf [2]"
type Manifest struct {
	Output string          `json:"output,omitempty"`
	Inputs []ManifestInput `json:"inputs"`
}

// ManifestInput is one manifest entry: either a bare token string or a path with optional pages.
type ManifestInput struct {
	Path  string `json:"path"`
	Pages string `json:"pages,omitempty"`
	token string
}

// UnmarshalJSON accepts either a token string or an object.
func (in *ManifestInput) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err == nil {
		*in = ManifestInput{token: token}
		return nil
	}
	type plain ManifestInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*in = ManifestInput(p)
	return nil
}

// Token returns the merge-mode token for this entry.
func (in ManifestInput) Token() string {
	if in.token != "" {
		return in.token
	}
	if in.Pages == "" {
		return in.Path
	}
	return in.Path + " " + in.Pages
}

// LoadManifest reads and validates a manifest. Relative input and output paths
// are taken relative to the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := ParseManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range m.Inputs {
		in := &m.Inputs[i]
		if in.token != "" {
			in.token = rebase(base, in.token)
		} else {
			in.Path = rebase(base, in.Path)
		}
	}
	if m.Output != "" {
		m.Output = rebase(base, m.Output)
	}
	return m, nil
}

// ParseManifest decodes YAML or JSON manifest content and validates it.
func ParseManifest(raw []byte) (*Manifest, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	// Round-trip through JSON so the validator sees JSON types only.
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	var generic any
	if err := json.Unmarshal(js, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	schema, err := compileManifestSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var m Manifest
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &m, nil
}

func compileManifestSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.json", strings.NewReader(manifestSchema)); err != nil {
		return nil, fmt.Errorf("failed to load manifest schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile manifest schema: %w", err)
	}
	return schema, nil
}

// Tokens returns the merge-mode tokens in manifest order.
func (m *Manifest) Tokens() []string {
	tokens := make([]string, len(m.Inputs))
	for i, in := range m.Inputs {
		tokens[i] = in.Token()
	}
	return tokens
}

// rebase joins relative paths onto base, leaving absolute and ~ paths alone.
func rebase(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "~") {
		return p
	}
	return filepath.Join(base, p)
}
