package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAsUTC(t *testing.T) {
	wall := time.Date(2026, 3, 29, 1, 30, 0, 0, time.UTC)

	t.Run("UTC is unchanged", func(t *testing.T) {
		assert.Equal(t, wall, AsUTC(wall))
	})

	t.Run("Local is read as UTC wall clock", func(t *testing.T) {
		local := time.Date(2026, 3, 29, 1, 30, 0, 0, time.Local)
		got := AsUTC(local)
		assert.Equal(t, time.UTC, got.Location())
		assert.True(t, wall.Equal(got))
	})

	t.Run("Fixed offset converts to the same instant", func(t *testing.T) {
		zone := time.FixedZone("UTC+2", 2*60*60)
		offset := time.Date(2026, 3, 29, 3, 30, 0, 0, zone)
		got := AsUTC(offset)
		assert.Equal(t, time.UTC, got.Location())
		assert.True(t, wall.Equal(got))
	})
}

func TestStringOrNil(t *testing.T) {
	assert.Nil(t, StringOrNil(""))
	assert.Nil(t, StringOrNil("  \n"))
	if got := StringOrNil(" Traceback "); assert.NotNil(t, got) {
		assert.Equal(t, "Traceback", *got)
	}
}

func TestPtrAndOrZero(t *testing.T) {
	p := Ptr(3)
	assert.Equal(t, 3, *p)
	assert.Equal(t, 3, OrZero(p))

	var missing *string
	assert.Equal(t, "", OrZero(missing))
}
