package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJournal_RollbackReverseOrder(t *testing.T) {
	var order []int
	j := New()
	j.Record(func() { order = append(order, 1) })
	j.Record(func() { order = append(order, 2) })
	j.Record(nil)
	assert.Equal(t, 2, j.Len())

	j.Rollback()
	assert.Equal(t, []int{2, 1}, order)
	assert.Equal(t, 0, j.Len())

	j.Rollback()
	assert.Equal(t, []int{2, 1}, order)
}

func TestJournal_Commit(t *testing.T) {
	called := false
	j := New()
	j.Record(func() { called = true })
	j.Commit()
	j.Rollback()
	assert.False(t, called)
}

func TestJournal_Nil(t *testing.T) {
	var j *Journal
	j.Record(func() {})
	j.Rollback()
	j.Commit()
	assert.Equal(t, 0, j.Len())
}
