package viewcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type note struct {
	ID   int64
	Text string
}

func noteID(n note) int64 { return n.ID }

func TestPrependAppliesOnce(t *testing.T) {
	c := New(noteID)
	c.Reset([]note{{ID: 1, Text: "old"}})

	c.Prepend(note{ID: 2, Text: "new"})
	c.Prepend(note{ID: 2, Text: "new, confirmed twice"})

	items := c.Items()
	assert.Len(t, items, 2)
	assert.Equal(t, note{ID: 2, Text: "new, confirmed twice"}, items[0])
	assert.Equal(t, int64(1), items[1].ID)
}

func TestAppendKeepsChronologicalOrder(t *testing.T) {
	c := New(noteID)
	c.Append(note{ID: 1, Text: "user"})
	c.Append(note{ID: 2, Text: "assistant"})
	c.Append(note{ID: 1, Text: "user"})

	items := c.Items()
	assert.Equal(t, []int64{1, 2}, []int64{items[0].ID, items[1].ID})
}

func TestReplaceAndRemove(t *testing.T) {
	c := New(noteID)
	c.Reset([]note{{ID: 1}, {ID: 2}, {ID: 3}})

	assert.True(t, c.Replace(note{ID: 2, Text: "edited"}))
	assert.False(t, c.Replace(note{ID: 9}))
	assert.True(t, c.Remove(1))
	assert.False(t, c.Remove(1))

	assert.Equal(t, []note{{ID: 2, Text: "edited"}, {ID: 3}}, c.Items())
	assert.Equal(t, 2, c.Len())
}

func TestItemsIsASnapshot(t *testing.T) {
	c := New(noteID)
	c.Append(note{ID: 1})
	items := c.Items()
	items[0].Text = "mutated"
	assert.Empty(t, c.Items()[0].Text)
}
