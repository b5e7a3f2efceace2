// Package cell implements the Static Cell value type: a handle to a
// fixed tape address and the BF-text emitters that operate on it
// without needing any other scratch cell. Every emitter here satisfies
// the home-cursor invariant: the BF head starts and ends at cell 0.
package cell

import "strings"

// Cell denotes a fixed tape address, optionally named for readability
// in debug output. Equality ignores the name (two cells at the same
// address are the same cell, named or not).
type Cell struct {
	Name string
	Addr int
}

// At constructs an unnamed cell at the given tape address.
func At(addr int) Cell { return Cell{Addr: addr} }

// Named returns a copy of c with a debug name attached.
func (c Cell) Named(name string) Cell {
	c.Name = name
	return c
}

// Off returns the cell offset by delta tape cells. Used to carve fixed
// sub-fields out of a table header; never used on a Dynamic Location's
// indirect variants (see internal/machine).
func (c Cell) Off(delta int) Cell {
	return Cell{Name: c.Name, Addr: c.Addr + delta}
}

// Same reports whether two cells denote the same tape address,
// ignoring their names.
func (c Cell) Same(other Cell) bool {
	return c.Addr == other.Addr
}

func (c Cell) String() string {
	if c.Name != "" {
		return c.Name
	}
	return "@" + itoa(c.Addr)
}

// To emits the BF text that moves the head from home to this cell.
func (c Cell) To() string { return strings.Repeat(">", c.Addr) }

// From emits the BF text that moves the head back from this cell to
// home. Used only paired with To around a primitive emission.
func (c Cell) From() string { return strings.Repeat("<", c.Addr) }

// At wraps body in this cell's To/From pair, enforcing the
// scoped-cursor discipline spec.md §9 asks for.
func (c Cell) At(body string) string {
	return c.To() + body + c.From()
}

// Zero sets the cell to 0 via the canonical [-] idiom.
func (c Cell) Zero() string {
	return c.At("[-]")
}

// SetConst zeroes the cell then increments it literal times. Large
// constants are emitted as literal repeated '+' runs; the BF text is
// not optimized for literal size (spec.md §4.B).
func (c Cell) SetConst(value uint64) string {
	return c.At("[-]" + strings.Repeat("+", int(value)))
}

// AddConst adds a constant (possibly negative, which becomes a run of
// '-') to the cell in place.
func (c Cell) AddConst(delta int64) string {
	if delta < 0 {
		return c.SubConst(-delta)
	}
	return c.At(strings.Repeat("+", int(delta)))
}

// SubConst subtracts a constant (possibly negative, which becomes a
// run of '+') from the cell in place.
func (c Cell) SubConst(delta int64) string {
	if delta < 0 {
		return c.AddConst(-delta)
	}
	return c.At(strings.Repeat("-", int(delta)))
}

// Inc increments the cell by one.
func (c Cell) Inc() string { return c.AddConst(1) }

// Dec decrements the cell by one.
func (c Cell) Dec() string { return c.SubConst(1) }

// PutChar prints the cell's value as a character.
func (c Cell) PutChar() string { return c.At(".") }

// GetChar reads one character of input into the cell.
func (c Cell) GetChar() string { return c.At(",") }

// PutMsg prints a literal ASCII string by repeatedly setting the cell
// to each byte and printing it. Used for fixed diagnostic strings; it
// needs no scratch cell of its own, unlike PutInt.
func (c Cell) PutMsg(msg string) string {
	var b strings.Builder
	for i := 0; i < len(msg); i++ {
		b.WriteString(c.SetConst(uint64(msg[i])))
		b.WriteString(c.PutChar())
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
