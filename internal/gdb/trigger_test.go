package gdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerSlotLatestWins(t *testing.T) {
	var slot triggerSlot
	assert.True(t, slot.TryPut(WatchTrigger{Kind: "r", Addr: 0x1000, Size: 4}))
	assert.True(t, slot.TryPut(WatchTrigger{Kind: "w", Addr: 0x2000, Size: 8}))

	trig, ok := slot.TryTake()
	require.True(t, ok)
	assert.Equal(t, WatchTrigger{Kind: "w", Addr: 0x2000, Size: 8}, trig)
}

func TestTriggerSlotTakeClears(t *testing.T) {
	var slot triggerSlot
	slot.TryPut(WatchTrigger{Kind: "rw", Addr: 0x8000, Size: 4})

	_, ok := slot.TryTake()
	require.True(t, ok)
	_, ok = slot.TryTake()
	assert.False(t, ok)
}

func TestTriggerSlotContendedPutDrops(t *testing.T) {
	var slot triggerSlot
	slot.mu.Lock()
	assert.False(t, slot.TryPut(WatchTrigger{Kind: "w", Addr: 0x1, Size: 1}))
	slot.mu.Unlock()

	_, ok := slot.TryTake()
	assert.False(t, ok)
}
