package basmparse

import (
	"fmt"
	"testing"
)

func resolverOver(files map[string]string) Resolver {
	return func(fromFile, path string) (string, []byte, error) {
		content, ok := files[path]
		if !ok {
			return "", nil, fmt.Errorf("no such file %q", path)
		}
		return path, []byte(content), nil
	}
}

func TestResolveIncludesSplicesFileInPlace(t *testing.T) {
	files := map[string]string{
		"const.basm": "R1 = 1\n",
	}
	src := "R0 = 0\n" +
		"include \"const.basm\"\n" +
		"putint R1\n"

	got, err := ResolveIncludes("main.basm", src, resolverOver(files))
	if err != nil {
		t.Fatalf("ResolveIncludes: %v", err)
	}
	want := "R0 = 0\n" +
		"R1 = 1\n" +
		"putint R1\n"
	if got != want {
		t.Fatalf("ResolveIncludes() = %q, want %q", got, want)
	}
}

func TestResolveIncludesIsTransitive(t *testing.T) {
	files := map[string]string{
		"b.basm": "include \"c.basm\"\n",
		"c.basm": "R2 = 2\n",
	}
	src := "include \"b.basm\"\n"

	got, err := ResolveIncludes("a.basm", src, resolverOver(files))
	if err != nil {
		t.Fatalf("ResolveIncludes: %v", err)
	}
	want := "R2 = 2\n"
	if got != want {
		t.Fatalf("ResolveIncludes() = %q, want %q", got, want)
	}
}

func TestResolveIncludesRejectsCycle(t *testing.T) {
	files := map[string]string{
		"a.basm": "include \"a.basm\"\n",
	}
	_, err := ResolveIncludes("a.basm", files["a.basm"], resolverOver(files))
	if err == nil {
		t.Fatal("ResolveIncludes with a self-including file returned nil error")
	}
}

func TestResolveIncludesPropagatesResolverError(t *testing.T) {
	_, err := ResolveIncludes("main.basm", "include \"missing.basm\"\n", resolverOver(nil))
	if err == nil {
		t.Fatal("ResolveIncludes with an unresolvable include returned nil error")
	}
}

func TestResolveIncludesLeavesNonIncludeLinesAlone(t *testing.T) {
	src := "R0 = 5\nputint R0\n"
	got, err := ResolveIncludes("main.basm", src, resolverOver(nil))
	if err != nil {
		t.Fatalf("ResolveIncludes: %v", err)
	}
	if got != src {
		t.Fatalf("ResolveIncludes() = %q, want input unchanged", got)
	}
}

func TestResolveIncludesThenParseAndRun(t *testing.T) {
	files := map[string]string{
		"const.basm": "R1 = 37\n",
	}
	src := "include \"const.basm\"\n" +
		"putint R1\n"

	expanded, err := ResolveIncludes("main.basm", src, resolverOver(files))
	if err != nil {
		t.Fatalf("ResolveIncludes: %v", err)
	}
	out, _, _ := parseAndRun(t, expanded)
	if string(out) != "37" {
		t.Fatalf("output = %q, want %q", out, "37")
	}
}

func TestParseIncludeLineRequiresQuotedPath(t *testing.T) {
	cases := []struct {
		line string
		ok   bool
	}{
		{`include "x.basm"`, true},
		{`  include "x.basm"  `, true},
		{`include x.basm`, false},
		{`R0 = 5`, false},
		{`includex "x.basm"`, false},
	}
	for _, c := range cases {
		_, ok := parseIncludeLine(c.line)
		if ok != c.ok {
			t.Errorf("parseIncludeLine(%q) ok = %v, want %v", c.line, ok, c.ok)
		}
	}
}
