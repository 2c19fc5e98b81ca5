package migration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionMapsIDs(t *testing.T) {
	s := NewSession()

	s.MapActivity("v1-act-1", "v2-act-1")
	s.MapTimeslice("v1-ts-1", "v2-ts-1")

	id, ok := s.ActivityID("v1-act-1")
	require.True(t, ok)
	require.Equal(t, "v2-act-1", id)

	id, ok = s.TimesliceID("v1-ts-1")
	require.True(t, ok)
	require.Equal(t, "v2-ts-1", id)

	_, ok = s.ActivityID("unknown")
	require.False(t, ok)

	require.Equal(t, 1, s.ActivityCount())
	require.Equal(t, 1, s.TimesliceCount())
}

func TestSessionReset(t *testing.T) {
	s := NewSession()
	s.MapActivity("a", "b")
	s.MapTimeslice("c", "d")

	s.Reset()

	require.Equal(t, 0, s.ActivityCount())
	require.Equal(t, 0, s.TimesliceCount())
	_, ok := s.ActivityID("a")
	require.False(t, ok)
}
