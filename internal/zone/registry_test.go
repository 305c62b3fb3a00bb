package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-lumizone/internal/frame"
)

func TestAddRejectsInvalid(t *testing.T) {
	r := NewRegistry(100)
	cases := []struct {
		name string
		z    Zone
	}{
		{"empty id", Zone{Pixels: 10, Mode: Static}},
		{"zero pixels", Zone{ID: "a", Pixels: 0, Mode: Static}},
		{"negative offset", Zone{ID: "a", Pixels: 10, Offset: -1, Mode: Static}},
		{"past strip end", Zone{ID: "a", Pixels: 10, Offset: 95, Mode: Static}},
		{"negative priority", Zone{ID: "a", Pixels: 10, Priority: -1, Mode: Static}},
		{"bad mode", Zone{ID: "a", Pixels: 10, Mode: "disco"}},
	}
	for _, tc := range cases {
		assert.Error(t, r.Add(tc.z), tc.name)
	}
}

func TestAddRejectsOverlap(t *testing.T) {
	r := NewRegistry(100)
	require.NoError(t, r.Add(Zone{ID: "a", Pixels: 30, Offset: 0, Mode: Static}))
	assert.Error(t, r.Add(Zone{ID: "b", Pixels: 10, Offset: 29, Mode: Static}))
	assert.Error(t, r.Add(Zone{ID: "a", Pixels: 10, Offset: 50, Mode: Static}), "duplicate id")
	assert.NoError(t, r.Add(Zone{ID: "c", Pixels: 10, Offset: 30, Mode: Static}))
}

func TestReplaceIsWholeEntry(t *testing.T) {
	r := NewRegistry(100)
	require.NoError(t, r.Add(Zone{ID: "a", Pixels: 20, Offset: 0, Priority: 0, Mode: Static}))

	up := Zone{ID: "a", Pixels: 20, Offset: 0, Priority: 2, Mode: Animation, BaseColor: frame.Color{R: 255}}
	require.NoError(t, r.Replace(up))
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, up, got)

	assert.Error(t, r.Replace(Zone{ID: "a", Pixels: 25, Offset: 0, Mode: Static}), "range is immutable")
	assert.Error(t, r.Replace(Zone{ID: "nope", Pixels: 20, Mode: Static}))
}

func TestSnapshotSortedByID(t *testing.T) {
	r := NewRegistry(100)
	require.NoError(t, r.Add(Zone{ID: "rear", Pixels: 10, Offset: 40, Mode: Static}))
	require.NoError(t, r.Add(Zone{ID: "front", Pixels: 10, Offset: 0, Mode: Static}))
	require.NoError(t, r.Add(Zone{ID: "mid", Pixels: 10, Offset: 20, Mode: Static}))

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "front", snap[0].ID)
	assert.Equal(t, "mid", snap[1].ID)
	assert.Equal(t, "rear", snap[2].ID)
}
