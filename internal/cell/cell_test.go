package cell

import "testing"

func TestToFromRoundTrip(t *testing.T) {
	c := At(5)
	if c.To() != ">>>>>" {
		t.Errorf("To() = %q, want 5 right-arrows", c.To())
	}
	if c.From() != "<<<<<" {
		t.Errorf("From() = %q, want 5 left-arrows", c.From())
	}
}

func TestAtHomeCursorInvariant(t *testing.T) {
	c := At(3)
	got := c.At("+")
	want := ">>>+<<<"
	if got != want {
		t.Errorf("At(%q) = %q, want %q", "+", got, want)
	}
}

func TestZero(t *testing.T) {
	c := At(2)
	if got, want := c.Zero(), ">>[-]<<"; got != want {
		t.Errorf("Zero() = %q, want %q", got, want)
	}
}

func TestSetConst(t *testing.T) {
	c := At(0)
	if got, want := c.SetConst(3), "[-]+++"; got != want {
		t.Errorf("SetConst(3) = %q, want %q", got, want)
	}
	if got, want := c.SetConst(0), "[-]"; got != want {
		t.Errorf("SetConst(0) = %q, want %q", got, want)
	}
}

func TestAddConstNegativeBecomesSub(t *testing.T) {
	c := At(0)
	if got, want := c.AddConst(-4), "----"; got != want {
		t.Errorf("AddConst(-4) = %q, want %q", got, want)
	}
	if got, want := c.SubConst(-4), "++++"; got != want {
		t.Errorf("SubConst(-4) = %q, want %q", got, want)
	}
}

func TestIncDec(t *testing.T) {
	c := At(0)
	if got, want := c.Inc(), "+"; got != want {
		t.Errorf("Inc() = %q, want %q", got, want)
	}
	if got, want := c.Dec(), "-"; got != want {
		t.Errorf("Dec() = %q, want %q", got, want)
	}
}

func TestPutMsgEmitsSetThenPrintPerByte(t *testing.T) {
	c := At(0)
	got := c.PutMsg("AB")
	want := c.SetConst('A') + c.PutChar() + c.SetConst('B') + c.PutChar()
	if got != want {
		t.Errorf("PutMsg(%q) = %q, want %q", "AB", got, want)
	}
}

func TestSameIgnoresName(t *testing.T) {
	a := At(4).Named("x")
	b := At(4).Named("y")
	if !a.Same(b) {
		t.Errorf("Same() = false, want true for cells at the same address")
	}
	if a.Same(At(5)) {
		t.Errorf("Same() = true, want false for cells at different addresses")
	}
}

func TestStringPrefersName(t *testing.T) {
	if got, want := At(4).Named("foo").String(), "foo"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := At(4).String(), "@4"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestOffPreservesName(t *testing.T) {
	c := At(10).Named("base").Off(3)
	if c.Addr != 13 {
		t.Errorf("Off(3).Addr = %d, want 13", c.Addr)
	}
	if c.Name != "base" {
		t.Errorf("Off(3).Name = %q, want %q", c.Name, "base")
	}
}
