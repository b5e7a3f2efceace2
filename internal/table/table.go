// Package table implements the tape-resident random-access array
// (spec.md §3.4, §4.D): a 4-cell header followed by 2*N interleaved
// (flag, data) cells, with indexed get/set realized by the classic BF
// "indexed array" idiom. The idiom strings here are transcribed
// verbatim at the tape-offset level from the reference implementation
// and must not be reformatted or "simplified" — they are sensitive to
// exact head position.
package table

import (
	"basm/internal/cell"
	"basm/internal/session"
)

// Table is an N-element array on tape. Invariant: whenever the BF head
// is at home, every flag cell in the table is 0.
type Table struct {
	DataCells int
	base      cell.Cell
	startData cell.Cell
	temp0     cell.Cell
	temp1     cell.Cell
	temp2     cell.Cell
}

// New builds a Table descriptor over an already-allocated header at
// base (4 header cells followed by 2*dataCells data cells).
func New(dataCells int, base cell.Cell) *Table {
	return &Table{
		DataCells: dataCells,
		base:      base,
		startData: base.Off(1),
		temp0:     base.Off(2),
		temp1:     base.Off(3),
		temp2:     base.Off(0),
	}
}

// Allocate carves a fresh Table of dataCells elements out of sess.
func Allocate(sess *session.Session, dataCells int) *Table {
	base := cell.At(sess.Alloc(4 + 2*dataCells))
	return New(dataCells, base)
}

// TotalSize is the tape footprint of the table, header included.
func (t *Table) TotalSize() int { return t.DataCells*2 + 4 }

// Start is the address of the first data cell.
func (t *Table) Start() cell.Cell { return t.startData }

// Set writes value into the element at index, the canonical indexed
// BF "indirect write" idiom: destructively reads index and value into
// scratches, walks right to the target data cell dropping flags along
// the way, overwrites, then walks back restoring the flags.
// Precondition: every flag cell is 0 on entry. Postcondition:
// data[index] == value; index and value are preserved via the
// scratches; flags are 0 again.
func (t *Table) Set(index, value cell.Cell) string {
	x := t.startData
	y := index
	z := value

	temp0 := t.temp0
	temp1 := t.temp1
	temp2 := t.temp2

	return temp0.Zero() +
		temp1.Zero() +
		temp2.Zero() +
		whileOn(y, temp1.Inc()+temp2.Inc()+y.Dec()) +
		whileOn(temp2, y.Inc()+temp2.Dec()) +
		whileOn(z, temp0.Inc()+temp2.Inc()+z.Dec()) +
		whileOn(temp2, z.Inc()+temp2.Dec()) +
		x.To() +
		">>[[>>]+[<<]>>-]+" +
		"[>>]<[-]<[<<]" +
		">[>[>>]<+<[<<]>-]" +
		">[>>]<<[-<<]" +
		x.From()
}

// SetConst materializes a literal value through valTemp (typically
// VAL_TEMP from the register file) and writes it via Set.
func (t *Table) SetConst(valTemp cell.Cell, index cell.Cell, value uint64) string {
	return valTemp.SetConst(value) + t.Set(index, valTemp)
}

// Get reads the element at index into dst, the canonical indexed BF
// "indirect read" idiom: destroys dst, walks to the indexed cell,
// drains a copy to dst via a scratch, restores. Postcondition:
// dst == data[index]; index is preserved; flags are 0.
func (t *Table) Get(index, dst cell.Cell) string {
	x := dst
	y := t.startData
	z := index

	temp0 := t.temp0
	temp1 := t.temp1

	return x.Zero() +
		temp0.Zero() +
		temp1.Zero() +
		whileOn(z, temp1.Inc()+temp0.Inc()+z.Dec()) +
		whileOn(temp0, z.Inc()+temp0.Dec()) +
		y.To() +
		">>[[>>]+[<<]>>-]+[>>]<[<[<<]>+<" +
		y.From() +
		x.Inc() +
		y.To() +
		">>[>>]<-]<[<<]>[>[>>]<+<[<<]>-]>[>>]<<[-<<]" +
		y.From()
}

func whileOn(x cell.Cell, body string) string {
	return x.To() + "[" + x.From() + body + x.To() + "]" + x.From()
}
