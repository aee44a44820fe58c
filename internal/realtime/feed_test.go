package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedDropsAlreadyDeliveredInserts(t *testing.T) {
	f := NewFeed(1, 2)

	assert.False(t, f.Admit(Event{Kind: KindInsert, ID: 2}))
	assert.True(t, f.Admit(Event{Kind: KindInsert, ID: 3}))
	assert.False(t, f.Admit(Event{Kind: KindInsert, ID: 3}))
}

func TestFeedDeleteThenLateInsert(t *testing.T) {
	f := NewFeed(1)

	assert.True(t, f.Admit(Event{Kind: KindDelete, ID: 1}))
	assert.False(t, f.Admit(Event{Kind: KindDelete, ID: 1}))
	assert.True(t, f.Admit(Event{Kind: KindDelete, ID: 4}))
	assert.False(t, f.Admit(Event{Kind: KindInsert, ID: 4}))
	assert.True(t, f.Admit(Event{Kind: KindUpdate, ID: 1}))
}
