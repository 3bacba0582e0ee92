package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

func sampleRows() []scrape.Row {
	return []scrape.Row{
		{
			URL:    "https://mbfc.test/a/",
			Record: scrape.Record{}.With(scrape.FieldBiasRating, "LEFT").With(scrape.FieldCredibilityRating, "HIGH CREDIBILITY"),
			Meta:   []scrape.Attr{{Name: "Type", Value: "left"}},
		},
		{URL: "https://mbfc.test/b/"},
	}
}

func sheetRows(t *testing.T, f *xlsx.File) [][]string {
	t.Helper()
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	var out [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		out = append(out, cells)
	}
	return out
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.xlsx")
	require.NoError(t, Save(path, sampleRows(), checkpoint.Codec{}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	rows := sheetRows(t, f)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"Link", "Type", "Bias Rating", "Factual Reporting", "Country",
		"Media Type", "Traffic/Popularity", "MBFC Credibility Rating",
	}, rows[0])
	assert.Equal(t, []string{"https://mbfc.test/a/", "left", "LEFT", "", "", "", "", "HIGH CREDIBILITY"}, rows[1])
	assert.Equal(t, "https://mbfc.test/b/", rows[2][0])
}

func TestWriteProducesWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRows(), checkpoint.Codec{KeyColumn: "url"}))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	rows := sheetRows(t, f)
	assert.Equal(t, "url", rows[0][0])
}

func TestBuildEmptyTableHasHeaderOnly(t *testing.T) {
	f, err := Build(nil, checkpoint.Codec{})
	require.NoError(t, err)
	rows := sheetRows(t, f)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 7)
}
