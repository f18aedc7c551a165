// Package manifestio loads permission manifests from YAML or JSON files,
// validates them against the manifest schema, and gates them on the host
// version before they reach the engine.
package manifestio

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/plugwarden/plugwarden/internal/domain/manifest"
)

//go:embed schema.json
var schemaJSON []byte

var manifestSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("manifest.json", bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("manifestio: add schema resource: %v", err))
	}
	schema, err := compiler.Compile("manifest.json")
	if err != nil {
		panic(fmt.Sprintf("manifestio: compile schema: %v", err))
	}
	return schema
}

// Loader parses and validates manifest files. HostVersion, when set, is
// checked against each manifest's host_version constraint.
type Loader struct {
	HostVersion string
}

// NewLoader creates a loader gating manifests on the given host version.
// An empty host version skips the gate.
func NewLoader(hostVersion string) *Loader {
	return &Loader{HostVersion: hostVersion}
}

// Load reads a manifest file. Both YAML and JSON are accepted since YAML
// is a superset of JSON.
func (l *Loader) Load(path string) (*manifest.Manifest, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open manifest directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	file, err := root.Open(base)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return l.LoadFromReader(file)
}

// LoadFromReader parses, schema-validates, and version-gates a manifest.
func (l *Loader) LoadFromReader(r io.Reader) (*manifest.Manifest, error) {
	var doc any
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	// Round-trip through JSON so the schema validator and the struct
	// decoder both see json-typed values regardless of source format.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize manifest: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("normalize manifest: %w", err)
	}

	if err := manifestSchema.Validate(normalized); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return nil, formatValidationError(validationErr)
		}
		return nil, fmt.Errorf("manifest schema validation failed: %w", err)
	}

	var m manifest.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if err := l.checkHostVersion(m.HostVersion); err != nil {
		return nil, err
	}
	return &m, nil
}

func (l *Loader) checkHostVersion(constraint string) error {
	if constraint == "" || l.HostVersion == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("manifest host_version %q is not a valid constraint: %w", constraint, err)
	}
	v, err := semver.NewVersion(l.HostVersion)
	if err != nil {
		return fmt.Errorf("host version %q is not valid semver: %w", l.HostVersion, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("manifest requires host version %s, host is %s", constraint, l.HostVersion)
	}
	return nil
}

func formatValidationError(err *jsonschema.ValidationError) error {
	var messages []string

	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if e.Message != "" {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(err)

	if len(messages) == 0 {
		return fmt.Errorf("manifest schema validation failed")
	}
	return fmt.Errorf("manifest schema validation failed:\n  - %s", strings.Join(messages, "\n  - "))
}
