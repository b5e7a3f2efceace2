// Package asciiart cosmetically re-skins emitted Brainfuck text into a
// named picture, ported from the original implementation's
// util::ascii templating engine. It consumes a compiled program's BF
// text at the CLI boundary and never feeds back into compilation.
package asciiart

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"basm/internal/bfop"
)

//go:embed templates/*.txt
var templateFS embed.FS

const placeholder = '#'

var glyphReplacements = []struct{ from, to byte }{
	{'-', '~'}, {'+', '*'}, {'.', ':'}, {',', ';'},
	{'#', '@'}, {'$', 'S'}, {'>', '/'}, {'<', '\\'}, {'[', '{'}, {']', '}'},
}

// ReplaceBrainfuckChars maps a template's BF-shaped glyphs to
// look-alike printable placeholders, so the raw template text reads as
// a picture rather than as Brainfuck source.
func ReplaceBrainfuckChars(art string) string {
	b := []byte(art)
	for i, c := range b {
		for _, r := range glyphReplacements {
			if c == r.from {
				b[i] = r.to
				break
			}
		}
	}
	return string(b)
}

func size(art string) (width, height int) {
	lines := strings.Split(art, "\n")
	for _, line := range lines {
		if n := len([]rune(line)); n > width {
			width = n
		}
	}
	return width, len(lines)
}

func fill(art string, width, height int) string {
	lines := strings.Split(art, "\n")
	out := make([]string, 0, height)
	for _, line := range lines {
		if n := len(line); n < width {
			line += strings.Repeat(" ", width-n)
		}
		out = append(out, line)
	}
	for len(out) < height {
		out = append(out, strings.Repeat(" ", width))
	}
	return strings.Join(out, "\n")
}

func scale(art string, factor int) string {
	lines := strings.Split(art, "\n")
	out := make([]string, 0, len(lines)*factor)
	for _, line := range lines {
		var scaled strings.Builder
		for _, c := range line {
			for i := 0; i < factor; i++ {
				scaled.WriteRune(c)
			}
		}
		for i := 0; i < factor; i++ {
			out = append(out, scaled.String())
		}
	}
	return strings.Join(out, "\n")
}

func availableSlots(art string) int {
	n := 0
	for _, c := range art {
		if !isSpace(c) {
			n++
		}
	}
	return n
}

func isSpace(c rune) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// padWithComments pads bf out to desiredSize by interleaving evenly
// spaced copies of comment (any character outside +-<>.,[]#$ is inert
// BF, so this never changes program semantics).
func padWithComments(bf, comment string, desiredSize int) string {
	if len(bf) >= desiredSize {
		return bf
	}
	if comment == "" {
		comment = "@%*"
	}

	remaining := desiredSize - len(bf)
	commentSize := len(comment)
	insertions := remaining / commentSize
	if insertions == 0 {
		return bf + strings.Repeat(" ", desiredSize-len(bf))
	}

	interval := (len(bf) + insertions) / insertions
	var out strings.Builder
	bfRunes := []byte(bf)
	pos := 0
	inserted := 0
	total := 0

	for total < desiredSize {
		if interval > 0 && total%interval == 0 && inserted < insertions {
			out.WriteString(comment)
			total += commentSize
			inserted++
			continue
		}
		if pos < len(bfRunes) {
			out.WriteByte(bfRunes[pos])
			pos++
			total++
		} else {
			break
		}
	}

	result := out.String()
	if len(result) < desiredSize {
		result += strings.Repeat(" ", desiredSize-len(result))
	}
	return result[:desiredSize]
}

// ApplyTemplate wraps bf text inside a scaled copy of the given
// template, producing ASCII art whose non-whitespace glyphs spell out
// the Brainfuck program in reading order.
func ApplyTemplate(template string, bf string, comment string) (string, error) {
	art := ReplaceBrainfuckChars(template)
	w, h := size(art)
	art = fill(art, w, h)

	normalized := bfop.WriteBF(bfop.Parse(bf), bfop.Width8)

	for availableSlots(art) < len(normalized) {
		art = scale(art, 2)
	}

	desired := availableSlots(art)
	padded := padWithComments(normalized, comment, desired)

	var out strings.Builder
	i := 0
	for _, c := range art {
		if isSpace(c) {
			out.WriteRune(c)
			continue
		}
		if i < len(padded) {
			out.WriteByte(padded[i])
			i++
		} else {
			out.WriteRune(placeholder)
		}
	}
	if i < len(padded) {
		return "", fmt.Errorf("template too small for program: %d slots, %d bytes needed", desired, len(padded))
	}
	return out.String(), nil
}

// Names lists the bundled template names, sorted.
func Names() []string {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".txt"))
	}
	sort.Strings(names)
	return names
}

// Load returns a bundled template's raw text by name.
func Load(name string) (string, error) {
	b, err := templateFS.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("no bundled template named %q", name)
	}
	return string(b), nil
}
