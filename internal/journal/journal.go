// Package journal records undo steps for a single allocator operation so that
// a failure part way through can restore every touched structure. Undo is
// O(number of recorded steps), never O(state size).
package journal

// Journal is an ordered undo log. The zero value is ready to use; a nil
// *Journal accepts records and ignores them.
type Journal struct {
	undo []func()
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{}
}

// Record appends an undo step.
func (j *Journal) Record(step func()) {
	if j == nil || step == nil {
		return
	}
	j.undo = append(j.undo, step)
}

// Len returns the number of pending undo steps.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.undo)
}

// Rollback runs the undo steps in reverse order and clears the journal.
func (j *Journal) Rollback() {
	if j == nil {
		return
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

// Commit discards the undo steps.
func (j *Journal) Commit() {
	if j == nil {
		return
	}
	j.undo = nil
}
