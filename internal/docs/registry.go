package docs

import (
	_ "embed"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed openers.toml
var openersTOML []byte

// Kind is the broad type of a tender document, used for labels and to
// pick opener arguments.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindSpreadsheet Kind = "spreadsheet"
	KindDocument    Kind = "document"
	KindDrawing     Kind = "drawing"
	KindArchive     Kind = "archive"
	KindUnknown     Kind = ""
)

type kindConfig struct {
	Label      string   `toml:"label"`
	Extensions []string `toml:"extensions"`
}

type platformConfig struct {
	Opener string   `toml:"opener"`
	Args   []string `toml:"args"`
}

type openerConfig struct {
	Platforms []string `toml:"platforms"`
	Kinds     []string `toml:"kinds"`
	Args      []string `toml:"args"`
}

type registryConfig struct {
	Kinds     map[string]kindConfig     `toml:"kinds"`
	Platforms map[string]platformConfig `toml:"platforms"`
	Openers   map[string]openerConfig   `toml:"openers"`
}

// Registry knows document kinds and how openers are invoked.
type Registry struct {
	cfg   registryConfig
	byExt map[string]Kind
}

// NewRegistry parses the embedded opener definitions.
func NewRegistry() (*Registry, error) {
	return parseRegistry(openersTOML)
}

func parseRegistry(data []byte) (*Registry, error) {
	var cfg registryConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}

	r := &Registry{cfg: cfg, byExt: make(map[string]Kind)}
	for name, k := range cfg.Kinds {
		for _, ext := range k.Extensions {
			r.byExt[strings.ToLower(ext)] = Kind(name)
		}
	}
	return r, nil
}

// Detect classifies a document link by its file extension, ignoring any
// query string or fragment.
func (r *Registry) Detect(link string) Kind {
	p := link
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "" {
		return KindUnknown
	}
	return r.byExt[ext]
}

// Label is the display name of k.
func (r *Registry) Label(k Kind) string {
	if c, ok := r.cfg.Kinds[string(k)]; ok && c.Label != "" {
		return c.Label
	}
	return "Link"
}

// DefaultOpener returns the platform opener and its leading arguments.
func (r *Registry) DefaultOpener(goos string) (string, []string) {
	if p, ok := r.cfg.Platforms[goos]; ok && p.Opener != "" {
		return p.Opener, p.Args
	}
	if p, ok := r.cfg.Platforms["fallback"]; ok && p.Opener != "" {
		return p.Opener, p.Args
	}
	return "open", nil
}

// Args returns the extra arguments opener needs for kind on goos, or nil
// when the opener is not registered for that combination.
func (r *Registry) Args(opener string, kind Kind, goos string) []string {
	o, ok := r.cfg.Openers[opener]
	if !ok {
		return nil
	}
	if !slices.Contains(o.Platforms, goos) || !slices.Contains(o.Kinds, string(kind)) {
		return nil
	}
	return o.Args
}
