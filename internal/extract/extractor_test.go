package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

const fullReport = `Overall, we rate Example News Left-Center biased.

Detailed Report
Bias Rating: LEFT-CENTER
Factual Reporting: HIGH
Country: United States (68/180 Press Freedom)
Media Type: Newspaper
Traffic/Popularity: High Traffic
MBFC Credibility Rating: HIGH CREDIBILITY

History
Founded in 1901.`

func TestExtractFullReport(t *testing.T) {
	t.Parallel()

	rec := New(zap.NewNop()).Extract("https://example.com", fullReport)

	want := map[scrape.Field]string{
		scrape.FieldBiasRating:        "LEFT-CENTER",
		scrape.FieldFactualReporting:  "HIGH",
		scrape.FieldCountry:           "United States (68/180 Press Freedom)",
		scrape.FieldMediaType:         "Newspaper",
		scrape.FieldTrafficPopularity: "High Traffic",
		scrape.FieldCredibilityRating: "HIGH CREDIBILITY",
	}
	for f, expected := range want {
		got, ok := rec.Value(f)
		require.True(t, ok, f.Label())
		assert.Equal(t, expected, got, f.Label())
	}
}

func TestExtractPartialFields(t *testing.T) {
	t.Parallel()

	rec := New(nil).Extract("u", "intro\nDetailed Report\nBias Rating: Left-Center\n")

	v, ok := rec.Value(scrape.FieldBiasRating)
	require.True(t, ok)
	require.Equal(t, "Left-Center", v)
	require.Len(t, rec.Missing(), 5)
}

func TestExtractMissingMarker(t *testing.T) {
	t.Parallel()

	rec := New(nil).Extract("u", "Bias Rating: Right\nCountry: USA")
	require.True(t, rec.Empty(), "labels before the marker must be ignored")
}

func TestExtractIgnoresLabelsBeforeMarker(t *testing.T) {
	t.Parallel()

	text := "Country: Elsewhere\nDetailed Report\nCountry: Canada\n"
	rec := New(nil).Extract("u", text)

	v, ok := rec.Value(scrape.FieldCountry)
	require.True(t, ok)
	require.Equal(t, "Canada", v)
}

func TestExtractFirstMatchWinsAndTrims(t *testing.T) {
	t.Parallel()

	text := "Detailed Report\r\nMedia Type:   TV Station  \r\nMedia Type: Website\r\n"
	rec := New(nil).Extract("u", text)

	v, ok := rec.Value(scrape.FieldMediaType)
	require.True(t, ok)
	require.Equal(t, "TV Station", v)
}

func TestExtractEmptyValueIsUnset(t *testing.T) {
	t.Parallel()

	rec := New(nil).Extract("u", "Detailed Report\nCountry:\nMedia Type: Website")

	_, ok := rec.Value(scrape.FieldCountry)
	require.False(t, ok)
	require.Nil(t, rec.Get(scrape.FieldCountry))
	media, _ := rec.Value(scrape.FieldMediaType)
	require.Equal(t, "Website", media)
}

func TestExtractEmptyText(t *testing.T) {
	t.Parallel()

	require.True(t, New(nil).Extract("u", "").Empty())
}
