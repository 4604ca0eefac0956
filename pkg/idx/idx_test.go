package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("generates unique ids", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 1000 {
			id := New().String()
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	})

	t.Run("ids are lexicographically ordered", func(t *testing.T) {
		a := New().String()
		b := New().String()
		require.Less(t, a, b)
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	id := New()
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = Parse("not-a-ulid")
	require.Error(t, err)
}

func TestNewAt(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)
	require.Equal(t, at.UnixMilli(), id.Time().UnixMilli())
}

func TestIsZero(t *testing.T) {
	t.Parallel()

	var zero ID
	require.True(t, zero.IsZero())
	require.False(t, New().IsZero())
}
