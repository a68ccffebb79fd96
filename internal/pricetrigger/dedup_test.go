package pricetrigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotDeduper(t *testing.T) {
	d := NewSlotDeduper()
	s1 := time.Unix(1738641600, 0)
	s2 := s1.Add(SlotDuration)

	require.NoError(t, d.TryAcquire(s1, "up"))
	assert.ErrorIs(t, d.TryAcquire(s1, "up"), ErrAlreadyBought)
	require.NoError(t, d.TryAcquire(s1, "down"))
	assert.Equal(t, 2, d.Len())

	d.Release(s1, "up")
	require.NoError(t, d.TryAcquire(s1, "up"))

	// a newer slot evicts every older key
	require.NoError(t, d.TryAcquire(s2, "up2"))
	assert.Equal(t, 1, d.Len())
	assert.ErrorIs(t, d.TryAcquire(s1, "down"), ErrStaleSlot)
}

func TestSlotDeduper_Rotate(t *testing.T) {
	d := NewSlotDeduper()
	s1 := time.Unix(1738641600, 0)
	require.NoError(t, d.TryAcquire(s1, "up"))

	d.Rotate(s1)
	assert.Equal(t, 1, d.Len())

	d.Rotate(s1.Add(SlotDuration))
	assert.Equal(t, 0, d.Len())
}
