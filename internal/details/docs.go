package details

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pelletier/go-toml"
)

// docsJSON is the on-disk shape of a package version's docs.json (§6's
// on-disk cache layout names it as user-facing, hence plain JSON rather
// than the teacher's TOML convention).
type docsJSON struct {
	Name      string       `json:"name"`
	Version   string       `json:"version"`
	Generated string       `json:"generated"`
	Modules   []docsModule `json:"modules"`
}

type docsModule struct {
	Name   string   `json:"name"`
	Types  []string `json:"types,omitempty"`
	Values []string `json:"values,omitempty"`
}

func marshalDocsJSON(doc docsJSON) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// cacheMeta is a compiler-private sidecar recorded next to docs.json, in
// the teacher's TOML convention for cache bookkeeping the compiler owns
// (never user-facing, unlike docs.json itself or gren.json).
type cacheMeta struct {
	GeneratedAt   string `toml:"generated_at"`
	ModuleCount   int    `toml:"module_count"`
	DocsSizeBytes int    `toml:"docs_size_bytes"`
}

func metaPathFor(docsPath string) string {
	return strings.TrimSuffix(docsPath, ".json") + ".meta.toml"
}

func writeCacheMetaBestEffort(docsPath string, meta cacheMeta) {
	data, err := toml.Marshal(meta)
	if err != nil {
		return
	}
	_ = os.WriteFile(metaPathFor(docsPath), data, 0o644)
}
