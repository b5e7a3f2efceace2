package bfop

import "testing"

func TestParseCoalescesRuns(t *testing.T) {
	ops := Parse(">>>+++---<")
	want := []Op{
		{Kind: Move, Arg: 3},
		{Kind: Add, Arg: 0}, // +++ then --- coalesce to zero net
		{Kind: Move, Arg: -1},
	}
	if len(ops) != len(want) {
		t.Fatalf("Parse() = %d ops, want %d: %v", len(ops), len(want), ops)
	}
	for i := range ops {
		if ops[i] != want[i] {
			t.Errorf("ops[%d] = %+v, want %+v", i, ops[i], want[i])
		}
	}
}

func TestParseRecognizesZeroIdiom(t *testing.T) {
	ops := Parse("[-]")
	if len(ops) != 1 || ops[0].Kind != Zero {
		t.Fatalf("Parse(%q) = %+v, want a single Zero op", "[-]", ops)
	}
}

func TestParseStripsComments(t *testing.T) {
	ops := Parse("+ this is a comment +")
	if len(ops) != 1 || ops[0] != (Op{Kind: Add, Arg: 2}) {
		t.Fatalf("Parse with comment chars = %+v, want a single coalesced Add(2)", ops)
	}
}

func TestParseUnmatchedBracketsPassThrough(t *testing.T) {
	// Parse itself does no bracket validation; that's bftest's job.
	ops := Parse("[")
	if len(ops) != 1 || ops[0].Kind != While {
		t.Fatalf("Parse(%q) = %+v, want a single While op", "[", ops)
	}
}

func TestWriteBFWidth8Identity(t *testing.T) {
	// ">>>" and "<<<" coalesce into a net-zero Move, so it vanishes from
	// the written text entirely.
	src := "+++>>><<<---.,"
	ops := Parse(src)
	got := WriteBF(ops, Width8)
	want := "+++---.,"
	if got != want {
		t.Errorf("WriteBF(Width8) = %q, want %q", got, want)
	}
}

func TestWriteBFWidth16MovesTripleCells(t *testing.T) {
	ops := []Op{{Kind: Move, Arg: 2}}
	got := WriteBF(ops, Width16)
	want := ">>>>>>"
	if got != want {
		t.Errorf("WriteBF(Width16) move = %q, want %q", got, want)
	}
}

func TestWriteBFWidth32MovesQuintupleCells(t *testing.T) {
	ops := []Op{{Kind: Move, Arg: -1}}
	got := WriteBF(ops, Width32)
	want := "<<<<<"
	if got != want {
		t.Errorf("WriteBF(Width32) move = %q, want %q", got, want)
	}
}

func TestCoalesceZeroOpsCollapse(t *testing.T) {
	var o Op = Op{Kind: Zero}
	if !o.Coalesce(Op{Kind: Zero}) {
		t.Error("Coalesce(Zero, Zero) = false, want true")
	}
}

func TestCoalesceRefusesDifferentKinds(t *testing.T) {
	o := Op{Kind: Move, Arg: 1}
	if o.Coalesce(Op{Kind: Add, Arg: 1}) {
		t.Error("Coalesce(Move, Add) = true, want false")
	}
}
