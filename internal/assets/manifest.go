package assets

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/dmikushin/apkext/pkg/payload/operations"
	"github.com/dmikushin/apkext/pkg/utils/permissions"
)

// ManifestName is the manifest's path inside the bundle.
const ManifestName = "manifest.yaml"

// Manifest lists the tool payloads carried by a bundle.
type Manifest struct {
	FileMode string        `yaml:"file_mode"`
	ExecMode string        `yaml:"exec_mode"`
	DirMode  string        `yaml:"dir_mode"`
	Tools    []ToolPayload `yaml:"tools"`
	// Required are cache-relative files that must exist for the cache to
	// be considered current.
	Required []string `yaml:"required"`

	fileMode fs.FileMode
	execMode fs.FileMode
	dirMode  fs.FileMode
}

// ToolPayload is one embedded tool.
type ToolPayload struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	URL     string `yaml:"url,omitempty"`
	SHA256  string `yaml:"sha256,omitempty"`
	// From names another tool whose download contains this one.
	From string `yaml:"from,omitempty"`
	// Include selects entries by prefix when the download is a zip.
	Include string `yaml:"include,omitempty"`
	// Payload is the bundle-relative path of the embedded file.
	Payload string `yaml:"payload"`
}

// Chain returns the operation chain when the payload is a bundle archive.
func (t ToolPayload) Chain() ([]uint8, bool) {
	ops, _, ok := operations.ChainForFile(t.Payload)
	return ops, ok
}

// LoadManifest reads and validates the manifest of bundle.
func LoadManifest(bundle fs.FS) (*Manifest, error) {
	data, err := fs.ReadFile(bundle, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ManifestName, err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestName, err)
	}

	var err error
	if m.fileMode, err = permissions.ParseMode(m.FileMode, permissions.DefaultFileMode); err != nil {
		return nil, fmt.Errorf("file_mode: %w", err)
	}
	if m.execMode, err = permissions.ParseMode(m.ExecMode, permissions.DefaultExecMode); err != nil {
		return nil, fmt.Errorf("exec_mode: %w", err)
	}
	if m.dirMode, err = permissions.ParseMode(m.DirMode, permissions.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("dir_mode: %w", err)
	}

	return &m, m.validate()
}

func (m *Manifest) validate() error {
	var errs []error
	names := make(map[string]bool)
	payloads := make(map[string]bool)

	for i, tool := range m.Tools {
		switch {
		case tool.Name == "":
			errs = append(errs, fmt.Errorf("tools[%d]: name is required", i))
		case names[tool.Name]:
			errs = append(errs, fmt.Errorf("tools[%d]: duplicate name %q", i, tool.Name))
		}
		names[tool.Name] = true

		if !localPath(tool.Payload) {
			errs = append(errs, fmt.Errorf("tool %q: payload %q must be a relative path inside the bundle", tool.Name, tool.Payload))
		} else if payloads[tool.Payload] {
			errs = append(errs, fmt.Errorf("tool %q: payload %q listed twice", tool.Name, tool.Payload))
		}
		payloads[tool.Payload] = true
	}

	for i, tool := range m.Tools {
		if tool.From != "" && !names[tool.From] {
			errs = append(errs, fmt.Errorf("tools[%d]: from refers to unknown tool %q", i, tool.From))
		}
	}
	for _, rel := range m.Required {
		if !localPath(rel) {
			errs = append(errs, fmt.Errorf("required path %q must be relative", rel))
		}
	}
	return errors.Join(errs...)
}

// Tool returns the payload named name.
func (m *Manifest) Tool(name string) (ToolPayload, bool) {
	for _, tool := range m.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolPayload{}, false
}

func localPath(p string) bool {
	return p != "." && fs.ValidPath(p)
}
