package basmparse

import (
	"testing"

	"basm/internal/bftest"
	"basm/internal/machine"
	"basm/internal/session"
)

func parseAndRun(t *testing.T, src string) ([]byte, *session.Session, *machine.Machine) {
	t.Helper()
	sess := session.New()
	m := machine.New(sess)
	prog, err := Parse(sess, m, "test.basm", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	text, err := prog.Assemble(m, sess)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	out, err := bftest.RunText(text, nil)
	if err != nil {
		t.Fatalf("RunText: %v", err)
	}
	return out, sess, m
}

func TestParseSetAndPutInt(t *testing.T) {
	out, _, _ := parseAndRun(t, "R0 = 5\nputint R0\n")
	if string(out) != "5" {
		t.Fatalf("output = %q, want %q", out, "5")
	}
}

func TestParseJumpSkipsInterveningLabel(t *testing.T) {
	src := "start:\n" +
		"putint 1\n" +
		"jmp end\n" +
		"skip:\n" +
		"putint 9\n" +
		"end:\n" +
		"putint 2\n"
	out, _, _ := parseAndRun(t, src)
	if string(out) != "12" {
		t.Fatalf("output = %q, want %q (skip block must not run)", out, "12")
	}
}

func TestParseBinaryOpTwoOperandForm(t *testing.T) {
	// dest = dest + a, with dest (R0) starting at its zero value.
	out, _, _ := parseAndRun(t, "R0 add 5\nputint R0\n")
	if string(out) != "5" {
		t.Fatalf("two-operand add output = %q, want %q", out, "5")
	}
}

func TestParseBinaryOpThreeOperandForm(t *testing.T) {
	out, _, _ := parseAndRun(t, "R0 add 3, 4\nputint R0\n")
	if string(out) != "7" {
		t.Fatalf("three-operand add output = %q, want %q", out, "7")
	}
}

func TestParseHexAndOctalAndCharLiterals(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"R0 = 0x2A\nputint R0\n", "42"},
		{"R0 = 0o52\nputint R0\n", "42"},
		{"R0 = 'A'\nputint R0\n", "65"},
	}
	for _, c := range cases {
		out, _, _ := parseAndRun(t, c.src)
		if string(out) != c.want {
			t.Errorf("Parse(%q) output = %q, want %q", c.src, out, c.want)
		}
	}
}

func TestParseStripsLineAndBlockComments(t *testing.T) {
	src := "R0 = 5 // trailing line comment\n" +
		"/* a block comment */ putint R0 ; semicolon comment\n"
	out, _, _ := parseAndRun(t, src)
	if string(out) != "5" {
		t.Fatalf("output = %q, want %q", out, "5")
	}
}

func TestParseIncDecWithAndWithoutAmount(t *testing.T) {
	out, _, _ := parseAndRun(t, "R0 = 10\ninc R0, 5\ndec R0\nputint R0\n")
	if string(out) != "14" {
		t.Fatalf("output = %q, want %q", out, "14")
	}
}

func TestParseStackIndirectLocation(t *testing.T) {
	src := "R0 = 3\n" +
		"[R0] = 42\n" +
		"R1 = [R0]\n" +
		"putint R1\n"
	out, _, _ := parseAndRun(t, src)
	if string(out) != "42" {
		t.Fatalf("stack-indirect round trip = %q, want %q", out, "42")
	}
}

func TestParseLeaDirectNoOffset(t *testing.T) {
	sess := session.New()
	m := machine.New(sess)
	r0, ok := m.Register("R0")
	if !ok {
		t.Fatal("R0 not registered")
	}
	prog, err := Parse(sess, m, "test.basm", "R1 lea R0\nputint R1\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	text, err := prog.Assemble(m, sess)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	out, err := bftest.RunText(text, nil)
	if err != nil {
		t.Fatalf("RunText: %v", err)
	}
	want := itoa(r0.Addr % 256)
	if string(out) != want {
		t.Fatalf("lea output = %q, want %q (R0's own address mod 256)", out, want)
	}
}

func TestParseLeaWithPositiveOffset(t *testing.T) {
	sess := session.New()
	m := machine.New(sess)
	r0, _ := m.Register("R0")
	prog, err := Parse(sess, m, "test.basm", "R1 lea R0 + 3\nputint R1\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	text, err := prog.Assemble(m, sess)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	out, err := bftest.RunText(text, nil)
	if err != nil {
		t.Fatalf("RunText: %v", err)
	}
	want := itoa((r0.Addr + 3) % 256)
	if string(out) != want {
		t.Fatalf("lea+offset output = %q, want %q", out, want)
	}
}

func TestParseUnknownRegisterIsSyntaxError(t *testing.T) {
	sess := session.New()
	m := machine.New(sess)
	_, err := Parse(sess, m, "test.basm", "R99 = 5\n")
	if err == nil {
		t.Fatal("Parse with unknown register returned nil error")
	}
}

func TestParseMissingEqualsOrLeaIsSyntaxError(t *testing.T) {
	sess := session.New()
	m := machine.New(sess)
	_, err := Parse(sess, m, "test.basm", "R0 5\n")
	if err == nil {
		t.Fatal("Parse with no '=' or 'lea' returned nil error")
	}
}

func TestParseCallAndReturn(t *testing.T) {
	src := "jmp main\n" +
		"sub:\n" +
		"putint 7\n" +
		"ret\n" +
		"main:\n" +
		"call sub\n" +
		"putint 9\n"
	out, _, _ := parseAndRun(t, src)
	if string(out) != "79" {
		t.Fatalf("call/ret output = %q, want %q", out, "79")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
