package partition

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

func inputRows(urls ...string) []scrape.InputRow {
	rows := make([]scrape.InputRow, len(urls))
	for i, u := range urls {
		rows[i] = scrape.InputRow{URL: u}
	}
	return rows
}

func TestPending(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []scrape.InputRow
		done map[string]struct{}
		want []scrape.WorkItem
	}{
		{
			name: "nothing done",
			in:   inputRows("a", "b", "c"),
			want: []scrape.WorkItem{{URL: "a"}, {URL: "b"}, {URL: "c"}},
		},
		{
			name: "keeps input order",
			in:   inputRows("d", "a", "c", "b"),
			done: map[string]struct{}{"a": {}, "b": {}},
			want: []scrape.WorkItem{{URL: "d"}, {URL: "c"}},
		},
		{
			name: "all done",
			in:   inputRows("a"),
			done: map[string]struct{}{"a": {}, "z": {}},
			want: []scrape.WorkItem{},
		},
		{
			name: "duplicate input urls",
			in:   inputRows("a", "b", "a"),
			want: []scrape.WorkItem{{URL: "a"}, {URL: "b"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, WorkItems(Pending(tc.in, tc.done)))
		})
	}
}

func TestPendingKeepsMeta(t *testing.T) {
	t.Parallel()

	in := []scrape.InputRow{{URL: "a", Meta: []scrape.Attr{{Name: "Type", Value: "left"}}}}
	require.Equal(t, in, Pending(in, nil))
}

func TestChunks(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5, 6, 7}
	require.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, Chunks(items, 3))
	require.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7}}, Chunks(items, 0))
	require.Equal(t, [][]int{{1, 2, 3, 4, 5, 6, 7}}, Chunks(items, 10))
	require.Nil(t, Chunks([]int{}, 3))

	chunks := Chunks(items, 3)
	chunks[0] = append(chunks[0], 99)
	require.Equal(t, 4, items[3], "appending to a chunk must not clobber the next one")
}
