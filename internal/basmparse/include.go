package basmparse

import (
	"fmt"
	"strings"
)

// Resolver maps an `include "path"` line, seen while processing
// fromFile, to the included file's own path and contents. The
// filesystem-backed resolver CLI callers pass in also consults a
// module cache for paths outside the current project.
type Resolver func(fromFile, path string) (resolvedFile string, content []byte, err error)

// ResolveIncludes expands every `include "path"` line in src, reading
// each included file through resolve and splicing its text in place of
// the include line. Includes are resolved before scanning or parsing
// proper, matching the textual (not AST-level) nature of the
// directive: an included file may itself contain further includes,
// resolved relative to its own path, and a file that (directly or
// transitively) includes itself is rejected rather than looped
// forever.
func ResolveIncludes(file string, src string, resolve Resolver) (string, error) {
	return resolveIncludes(file, src, resolve, map[string]bool{file: true})
}

func resolveIncludes(file, src string, resolve Resolver, seen map[string]bool) (string, error) {
	lines := strings.Split(src, "\n")
	var out strings.Builder
	for i, line := range lines {
		path, ok := parseIncludeLine(line)
		if !ok {
			out.WriteString(line)
		} else {
			resolvedFile, content, err := resolve(file, path)
			if err != nil {
				return "", fmt.Errorf("%s: include %q: %w", file, path, err)
			}
			if seen[resolvedFile] {
				return "", fmt.Errorf("%s: include %q: include cycle through %s", file, path, resolvedFile)
			}
			childSeen := make(map[string]bool, len(seen)+1)
			for k := range seen {
				childSeen[k] = true
			}
			childSeen[resolvedFile] = true

			expanded, err := resolveIncludes(resolvedFile, string(content), resolve, childSeen)
			if err != nil {
				return "", err
			}
			// The include line itself supplies the line break below,
			// so a trailing newline carried over from the included
			// file's own content would otherwise leave a blank line
			// behind.
			out.WriteString(strings.TrimRight(expanded, "\n"))
		}
		if i != len(lines)-1 {
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

// parseIncludeLine recognizes a line of the form `include "path"`,
// with optional leading/trailing whitespace, and nothing else on the
// line (an include is a statement on its own line, not an expression).
func parseIncludeLine(line string) (path string, ok bool) {
	trimmed := strings.TrimSpace(line)
	rest := strings.TrimPrefix(trimmed, "include")
	if rest == trimmed {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}
