package scrape

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldLabelsRoundTrip(t *testing.T) {
	t.Parallel()

	for _, f := range Fields() {
		got, ok := FieldByLabel(f.Label())
		require.True(t, ok, f.Label())
		require.Equal(t, f, got)
	}
	_, ok := FieldByLabel("Link")
	require.False(t, ok)
	require.Equal(t, "Field(42)", Field(42).Label())
}

func TestRecordWithAndMissing(t *testing.T) {
	t.Parallel()

	var rec Record
	require.True(t, rec.Empty())
	require.Len(t, rec.Missing(), 6)

	updated := rec.With(FieldBiasRating, "Left-Center").With(FieldCountry, "USA")
	require.True(t, rec.Empty(), "With must not mutate the receiver")

	v, ok := updated.Value(FieldBiasRating)
	require.True(t, ok)
	require.Equal(t, "Left-Center", v)
	require.Equal(t, []Field{
		FieldFactualReporting,
		FieldMediaType,
		FieldTrafficPopularity,
		FieldCredibilityRating,
	}, updated.Missing())
}

func TestOutcomeConstructors(t *testing.T) {
	t.Parallel()

	ok := Succeeded("https://a", Record{})
	require.True(t, ok.Success())

	failed := Failed("https://b", nil)
	require.False(t, failed.Success())
	require.Error(t, failed.Err)
}

func TestFetchErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := &FetchError{URL: "https://a", Op: "wait", Err: ErrContentNotFound}
	require.ErrorIs(t, err, ErrContentNotFound)
	require.Contains(t, err.Error(), "fetch https://a: wait")

	var fe *FetchError
	require.True(t, errors.As(error(err), &fe))
}

func TestRowMetaValue(t *testing.T) {
	t.Parallel()

	row := Row{URL: "u", Meta: []Attr{{Name: "Type", Value: "left"}}}
	v, ok := row.MetaValue("Type")
	require.True(t, ok)
	require.Equal(t, "left", v)
	_, ok = row.MetaValue("Group")
	require.False(t, ok)
}
