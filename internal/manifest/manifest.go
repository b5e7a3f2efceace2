// Package manifest reads and writes basm.mod files, textually modeled
// on the teacher's sentra.mod format: a module path, a toolchain
// version line, and a require block of (path, version) pairs. Unlike
// the teacher's parser, versions are validated with x/mod/semver
// before they're trusted anywhere a fetch might use them.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/semver"
)

// Requirement is one `require` entry: a module path and a semver tag.
type Requirement struct {
	Path    string
	Version string
}

// Manifest is the parsed contents of a basm.mod file.
type Manifest struct {
	Module  string
	Basm    string
	Require []Requirement
}

// Parse reads a basm.mod file from path.
func Parse(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	m := &Manifest{}
	scanner := bufio.NewScanner(f)
	inRequire := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "module "):
			m.Module = strings.TrimSpace(strings.TrimPrefix(line, "module"))

		case strings.HasPrefix(line, "basm "):
			m.Basm = strings.TrimSpace(strings.TrimPrefix(line, "basm"))

		case line == "require (":
			inRequire = true

		case inRequire && line == ")":
			inRequire = false

		case inRequire:
			req, err := parseRequireLine(line)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			m.Require = append(m.Require, req)

		case strings.HasPrefix(line, "require "):
			req, err := parseRequireLine(strings.TrimPrefix(line, "require "))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			m.Require = append(m.Require, req)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseRequireLine(line string) (Requirement, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Requirement{}, fmt.Errorf("malformed require line %q", line)
	}
	path, version := fields[0], fields[1]
	if !semver.IsValid(version) {
		return Requirement{}, fmt.Errorf("require %s: %q is not a valid semver version", path, version)
	}
	return Requirement{Path: path, Version: version}, nil
}

// Write serializes m to path in basm.mod's canonical layout.
func Write(path string, m *Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "module %s\n", m.Module)
	if m.Basm != "" {
		fmt.Fprintf(w, "basm %s\n", m.Basm)
	}
	if len(m.Require) > 0 {
		fmt.Fprintln(w, "\nrequire (")
		for _, req := range m.Require {
			fmt.Fprintf(w, "\t%s %s\n", req.Path, req.Version)
		}
		fmt.Fprintln(w, ")")
	}
	return w.Flush()
}

// Tidy validates every requirement's version (rejecting anything
// semver.IsValid rejects) and sorts the requirements so the same
// manifest always serializes identically, mirroring `go mod tidy`'s
// canonicalization without touching the network.
func Tidy(m *Manifest) error {
	for _, req := range m.Require {
		if !semver.IsValid(req.Version) {
			return fmt.Errorf("require %s: %q is not a valid semver version", req.Path, req.Version)
		}
	}
	for i := 1; i < len(m.Require); i++ {
		for j := i; j > 0 && less(m.Require[j], m.Require[j-1]); j-- {
			m.Require[j], m.Require[j-1] = m.Require[j-1], m.Require[j]
		}
	}
	return nil
}

func less(a, b Requirement) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	return semver.Compare(a.Version, b.Version) < 0
}
