// Package symtab implements the compiler's global symbol table: an
// append-only mapping from variable name to a dense storage slot.
//
// There are no local scopes or closures in this language, so a single
// flat table, threaded through one compilation, is the whole story.
// Redefining a name (a second `(define x ...)`) reuses the existing
// slot rather than allocating a new one, matching the prototype's
// behavior of treating `define` as "assign, creating the global if it
// doesn't exist yet."
package symtab

// NotFound is returned by Lookup when name has never been defined.
const NotFound = -1

// Table assigns each distinct variable name a stable integer slot, in
// the order names are first defined.
type Table struct {
	slots map[string]int
	names []string
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{slots: make(map[string]int)}
}

// Lookup returns the slot assigned to name, or NotFound if name has
// never been defined.
func (t *Table) Lookup(name string) int {
	if slot, ok := t.slots[name]; ok {
		return slot
	}
	return NotFound
}

// Define assigns name a slot if it doesn't have one yet, and returns
// that slot either way. Slots are handed out densely starting at 0, in
// first-definition order.
func (t *Table) Define(name string) int {
	if slot, ok := t.slots[name]; ok {
		return slot
	}
	slot := len(t.names)
	t.slots[name] = slot
	t.names = append(t.names, name)
	return slot
}

// Len returns the number of distinct names defined so far, i.e. the
// size the VM's global slot array needs to be.
func (t *Table) Len() int {
	return len(t.names)
}

// Name returns the name bound to slot, for disassembly and
// diagnostics. It panics if slot is out of range, since it is only
// ever called with slots this table itself handed out.
func (t *Table) Name(slot int) string {
	return t.names[slot]
}
