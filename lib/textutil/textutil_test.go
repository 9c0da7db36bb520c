package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "hoursconducted", NormalizeName("  Hours\n\tConducted "))
	require.Equal(t, "coursetitle", NormalizeName("Course   Title"))
	require.Equal(t, "", NormalizeName("  \n "))
}

func TestMatchAny(t *testing.T) {
	text := "Course Title\nHours  Conducted\nAttn %"
	require.True(t, MatchAny(text, []string{"hours conducted"}))
	require.True(t, MatchAny(text, []string{"nope", "course title"}))
	require.False(t, MatchAny(text, []string{"semester"}))
	require.False(t, MatchAny(text, nil))
}
