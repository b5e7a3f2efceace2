package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"basm/internal/basmparse"
	"basm/internal/manifest"
)

// resolveInclude is the filesystem+module-cache-backed
// basmparse.Resolver every CLI entry point threads through
// CompileToBF: a relative include resolves next to the including
// file; anything else is matched against the nearest basm.mod's
// requirements and fetched (if needed) into the module cache.
func resolveInclude(fromFile, path string) (string, []byte, error) {
	local := filepath.Join(filepath.Dir(fromFile), path)
	if data, err := os.ReadFile(local); err == nil {
		return local, data, nil
	}

	m, modRoot, err := nearestManifest(filepath.Dir(fromFile))
	if err != nil {
		return "", nil, fmt.Errorf("%q is not a local file and no basm.mod was found above %s", path, fromFile)
	}

	for _, req := range m.Require {
		if req.Path != path && !strings.HasPrefix(path, req.Path+"/") {
			continue
		}
		cache := manifest.NewCache(filepath.Join(cacheDir(), "mod"))
		dir, err := cache.Dir(req)
		if err != nil {
			return "", nil, err
		}
		remainder := strings.TrimPrefix(path, req.Path)
		resolved := filepath.Join(dir, remainder)
		data, err := os.ReadFile(resolved)
		if err != nil {
			return "", nil, fmt.Errorf("read %s@%s: %w", req.Path, req.Version, err)
		}
		return resolved, data, nil
	}

	return "", nil, fmt.Errorf("%q matches no requirement in %s", path, filepath.Join(modRoot, manifestFileName))
}

// nearestManifest walks up from dir looking for a basm.mod file, the
// same lookup `go build` does for go.mod.
func nearestManifest(dir string) (*manifest.Manifest, string, error) {
	for {
		path := filepath.Join(dir, manifestFileName)
		if _, err := os.Stat(path); err == nil {
			m, err := manifest.Parse(path)
			return m, dir, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", fmt.Errorf("no %s found", manifestFileName)
		}
		dir = parent
	}
}

// withIncludesResolved expands `include "path"` lines in src before
// it reaches the scanner, a no-op for already-BF input.
func withIncludesResolved(path string, src []byte, source SourceKind) ([]byte, error) {
	if source == SourceBrainfuck {
		return src, nil
	}
	expanded, err := basmparse.ResolveIncludes(path, string(src), resolveInclude)
	if err != nil {
		return nil, err
	}
	return []byte(expanded), nil
}
