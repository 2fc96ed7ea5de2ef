package build

import (
	"os"
	"path/filepath"

	"github.com/gren-lang/grenc/internal/codec"
	"github.com/gren-lang/grenc/internal/compile"
	"github.com/gren-lang/grenc/internal/compiler"
	"github.com/gren-lang/grenc/internal/grenerr"
	"github.com/gren-lang/grenc/internal/iface"
	"github.com/gren-lang/grenc/internal/modname"
)

// snapshot is the on-disk shape of .gren/objects.dat and .gren/interfaces.dat
// combined: every local module's staleness bookkeeping (§4.3), its linked
// object graph, its canonical interface (so a module untouched by the next
// build can be fed to the Engine as a SourceCached leaf instead of being
// recompiled), and whether it defines main.
// Graphs holds each module's compiler.LocalGraph verbatim; msgpack encodes
// it through whatever concrete type a linked Service implementation uses,
// the same way artifact.Cache already persists compiler.GlobalGraph (§4.4).
type snapshot struct {
	Locals     map[modname.Raw]compile.Local
	Graphs     map[modname.Raw]compiler.LocalGraph
	Interfaces map[modname.Raw]iface.Interface
	Main       map[modname.Raw]bool
}

func loadSnapshot(grenDir string) (*snapshot, error) {
	objPath := filepath.Join(grenDir, "objects.dat")
	data, err := os.ReadFile(objPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s snapshot
	if err := codec.Decode(data, &s); err != nil {
		return nil, grenerr.NewCorruptCacheError(objPath, err)
	}
	return &s, nil
}

func writeSnapshot(grenDir string, s *snapshot) error {
	if err := os.MkdirAll(grenDir, 0o755); err != nil {
		return err
	}
	data, err := codec.Encode(s)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(grenDir, "objects.dat"), data, 0o644)
}
