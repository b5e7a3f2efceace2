package asciiart

import (
	"sort"
	"testing"

	"basm/internal/bftest"
)

func TestReplaceBrainfuckChars(t *testing.T) {
	in := "+-<>.,[]#$"
	want := "*~\\/:;{}@S"
	if got := ReplaceBrainfuckChars(in); got != want {
		t.Errorf("ReplaceBrainfuckChars(%q) = %q, want %q", in, got, want)
	}
}

func TestReplaceBrainfuckCharsLeavesOthersAlone(t *testing.T) {
	in := "hello world\n"
	if got := ReplaceBrainfuckChars(in); got != in {
		t.Errorf("ReplaceBrainfuckChars(%q) = %q, want unchanged", in, got)
	}
}

func TestNamesListsBundledTemplatesSorted(t *testing.T) {
	names := Names()
	if len(names) == 0 {
		t.Fatal("Names() returned no templates")
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("Names() = %v, not sorted", names)
	}
	found := false
	for _, n := range names {
		if n == "tiny" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, want it to include %q", names, "tiny")
	}
}

func TestLoadUnknownTemplateErrors(t *testing.T) {
	if _, err := Load("not-a-real-template"); err == nil {
		t.Error("Load of an unknown template returned nil error")
	}
}

func TestLoadKnownTemplate(t *testing.T) {
	art, err := Load("tiny")
	if err != nil {
		t.Fatalf("Load(tiny): %v", err)
	}
	if art == "" {
		t.Error("Load(tiny) returned empty text")
	}
}

func TestApplyTemplatePreservesProgramSemantics(t *testing.T) {
	tmpl, err := Load("tiny")
	if err != nil {
		t.Fatalf("Load(tiny): %v", err)
	}
	prog := "++++++++[>++++++++<-]>+."

	wrapped, err := ApplyTemplate(tmpl, prog, "")
	if err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}

	want, err := bftest.RunText(prog, nil)
	if err != nil {
		t.Fatalf("RunText(prog): %v", err)
	}
	got, err := bftest.RunText(wrapped, nil)
	if err != nil {
		t.Fatalf("RunText(wrapped): %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("wrapped program output = %q, want %q (wrapping must not change semantics)", got, want)
	}
}

func TestNamesListsAllBundledTemplates(t *testing.T) {
	want := []string{
		"adam", "bomb", "cigarette", "coca-cola", "footgun", "jolly-roger",
		"lightbulb", "mandelbrot", "peace", "radioactive", "revolver",
		"smile", "tiny",
	}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %d entries: %v", got, len(want), want)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestApplyTemplatePreservesSemanticsForEveryTemplate(t *testing.T) {
	prog := "++++++++[>++++++++<-]>+."
	want, err := bftest.RunText(prog, nil)
	if err != nil {
		t.Fatalf("RunText(prog): %v", err)
	}

	for _, name := range Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			tmpl, err := Load(name)
			if err != nil {
				t.Fatalf("Load(%s): %v", name, err)
			}
			wrapped, err := ApplyTemplate(tmpl, prog, "")
			if err != nil {
				t.Fatalf("ApplyTemplate(%s): %v", name, err)
			}
			got, err := bftest.RunText(wrapped, nil)
			if err != nil {
				t.Fatalf("RunText(wrapped %s): %v", name, err)
			}
			if string(got) != string(want) {
				t.Errorf("template %s: wrapped program output = %q, want %q", name, got, want)
			}
		})
	}
}

func TestApplyTemplateGrowsForLargePrograms(t *testing.T) {
	tmpl, err := Load("tiny")
	if err != nil {
		t.Fatalf("Load(tiny): %v", err)
	}
	// Far more non-whitespace BF content than the tiny template has
	// slots for, forcing at least one scale-up pass.
	prog := ""
	for i := 0; i < 50; i++ {
		prog += "+>"
	}

	wrapped, err := ApplyTemplate(tmpl, prog, "")
	if err != nil {
		t.Fatalf("ApplyTemplate: %v", err)
	}
	want, err := bftest.RunText(prog, nil)
	if err != nil {
		t.Fatalf("RunText(prog): %v", err)
	}
	got, err := bftest.RunText(wrapped, nil)
	if err != nil {
		t.Fatalf("RunText(wrapped): %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("wrapped large program output = %q, want %q", got, want)
	}
}

func TestFillPadsLinesToWidthAndHeight(t *testing.T) {
	got := fill("ab\nc", 3, 3)
	want := "ab \nc  \n   "
	if got != want {
		t.Errorf("fill() = %q, want %q", got, want)
	}
}

func TestScaleRepeatsEachCharAndLine(t *testing.T) {
	got := scale("ab", 2)
	want := "aabb\naabb"
	if got != want {
		t.Errorf("scale() = %q, want %q", got, want)
	}
}

func TestAvailableSlotsCountsNonSpace(t *testing.T) {
	if got, want := availableSlots("a b\nc"), 3; got != want {
		t.Errorf("availableSlots() = %d, want %d", got, want)
	}
}

func TestPadWithCommentsNeverShrinks(t *testing.T) {
	got := padWithComments("+-", "@", 10)
	if len(got) != 10 {
		t.Errorf("padWithComments() length = %d, want 10", len(got))
	}
}

func TestPadWithCommentsNoopWhenAlreadyLongEnough(t *testing.T) {
	if got := padWithComments("++++++", "@", 4); got != "++++++" {
		t.Errorf("padWithComments() = %q, want input unchanged", got)
	}
}
