package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "linearalgebra", NormalizeName("  Linear  Algebra \n"))
	require.Equal(t, "calculusi", NormalizeName("Calculus I"))
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("Calculus I", "calculus", "physics"))
	require.True(t, MatchName(" PHYSICS Lab ", "calculus", "physics"))
	require.False(t, MatchName("Linear Algebra", "calculus", "physics"))
	require.False(t, MatchName("Linear Algebra"))
}
