package uuid

import (
	"sort"
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNewIDVersion(t *testing.T) {
	t.Parallel()

	id, err := New().NewID()
	require.NoError(t, err)
	parsed, err := goUUID.Parse(id)
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(7), parsed.Version())
}

// Run IDs issued in sequence sort in issue order and never repeat.
func TestGeneratorNewIDOrdered(t *testing.T) {
	t.Parallel()

	gen := New()
	ids := make([]string, 50)
	seen := make(map[string]struct{}, len(ids))
	for i := range ids {
		id, err := gen.NewID()
		require.NoError(t, err)
		ids[i] = id
		seen[id] = struct{}{}
	}
	require.Len(t, seen, len(ids))
	require.True(t, sort.StringsAreSorted(ids), "ids not time ordered: %v", ids)
}
