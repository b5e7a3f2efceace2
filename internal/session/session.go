// Package session threads the compiler's process-wide mutable state
// explicitly through one object instead of package-level globals.
package session

import "fmt"

// Session owns the tape cursor, the next-basic-block-id counter, and
// the label/id basic-block registries for a single compilation. A
// fresh Session must be used per independent compilation; sharing one
// across two unrelated programs would make their basic-block ids and
// tape addresses collide.
type Session struct {
	cursor      int
	nextBlockID int
	byName      map[string]int
	byID        map[int]string
}

// New returns an empty Session with its cursor at tape address 0 and
// no basic blocks registered yet.
func New() *Session {
	return &Session{
		byName: make(map[string]int),
		byID:   make(map[int]string),
	}
}

// Alloc returns the current cursor and advances it by size. Tables and
// the fixed register file call this once each at machine construction;
// there is no deallocation, the layout is static for the compilation.
func (s *Session) Alloc(size int) int {
	addr := s.cursor
	s.cursor += size
	return addr
}

// NextBlockID allocates the next monotonically increasing basic-block
// id. Id 0 is reserved as "halt" and is never returned here; ids start
// at 1.
func (s *Session) NextBlockID() int {
	s.nextBlockID++
	return s.nextBlockID
}

// RegisterLabel binds a label to a basic-block id. Re-registering the
// same label with a different id is a programming error in the parser
// and panics, since the AST contract guarantees unique labels.
func (s *Session) RegisterLabel(label string, id int) {
	if existing, ok := s.byName[label]; ok && existing != id {
		panic(fmt.Sprintf("label %q already bound to block %d (cannot rebind to %d)", label, existing, id))
	}
	s.byName[label] = id
	s.byID[id] = label
}

// ResolveLabel looks up the basic-block id bound to a label.
func (s *Session) ResolveLabel(label string) (int, bool) {
	id, ok := s.byName[label]
	return id, ok
}
