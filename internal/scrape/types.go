// Package scrape defines the core types shared across the scraping pipeline.
package scrape

import (
	"errors"
	"fmt"
)

// ErrContentNotFound indicates the fetched page never exposed the content region.
var ErrContentNotFound = errors.New("content region not found")

// Field identifies one of the labeled rating lines in a detailed report.
type Field int

// Rating fields in the order they are written to the checkpoint table.
const (
	FieldBiasRating Field = iota
	FieldFactualReporting
	FieldCountry
	FieldMediaType
	FieldTrafficPopularity
	FieldCredibilityRating
)

var fieldLabels = [...]string{
	FieldBiasRating:        "Bias Rating",
	FieldFactualReporting:  "Factual Reporting",
	FieldCountry:           "Country",
	FieldMediaType:         "Media Type",
	FieldTrafficPopularity: "Traffic/Popularity",
	FieldCredibilityRating: "MBFC Credibility Rating",
}

// Fields lists every rating field in table order.
func Fields() []Field {
	return []Field{
		FieldBiasRating,
		FieldFactualReporting,
		FieldCountry,
		FieldMediaType,
		FieldTrafficPopularity,
		FieldCredibilityRating,
	}
}

// Label returns the text label used both in page content and as the table column name.
func (f Field) Label() string {
	if f < 0 || int(f) >= len(fieldLabels) {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldLabels[f]
}

// String implements fmt.Stringer.
func (f Field) String() string {
	return f.Label()
}

// FieldByLabel resolves a column name back to its Field.
func FieldByLabel(label string) (Field, bool) {
	for _, f := range Fields() {
		if f.Label() == label {
			return f, true
		}
	}
	return 0, false
}

// WorkItem is one URL waiting to be scraped.
type WorkItem struct {
	URL string
}

// Record holds the rating fields extracted from one page. A nil field was not found.
type Record struct {
	BiasRating        *string
	FactualReporting  *string
	Country           *string
	MediaType         *string
	TrafficPopularity *string
	CredibilityRating *string
}

// Get returns the value of f, or nil when unset.
func (r Record) Get(f Field) *string {
	switch f {
	case FieldBiasRating:
		return r.BiasRating
	case FieldFactualReporting:
		return r.FactualReporting
	case FieldCountry:
		return r.Country
	case FieldMediaType:
		return r.MediaType
	case FieldTrafficPopularity:
		return r.TrafficPopularity
	case FieldCredibilityRating:
		return r.CredibilityRating
	default:
		return nil
	}
}

// With returns a copy of r with f set to value.
func (r Record) With(f Field, value string) Record {
	v := value
	switch f {
	case FieldBiasRating:
		r.BiasRating = &v
	case FieldFactualReporting:
		r.FactualReporting = &v
	case FieldCountry:
		r.Country = &v
	case FieldMediaType:
		r.MediaType = &v
	case FieldTrafficPopularity:
		r.TrafficPopularity = &v
	case FieldCredibilityRating:
		r.CredibilityRating = &v
	}
	return r
}

// Value returns the field value and whether it is set.
func (r Record) Value(f Field) (string, bool) {
	p := r.Get(f)
	if p == nil {
		return "", false
	}
	return *p, true
}

// Missing lists the fields that are unset.
func (r Record) Missing() []Field {
	var out []Field
	for _, f := range Fields() {
		if r.Get(f) == nil {
			out = append(out, f)
		}
	}
	return out
}

// Empty reports whether no field is set.
func (r Record) Empty() bool {
	return len(r.Missing()) == len(Fields())
}

// Outcome is the result of scraping a single WorkItem.
type Outcome struct {
	URL    string
	Record Record
	Err    error
}

// Succeeded builds a successful Outcome.
func Succeeded(url string, record Record) Outcome {
	return Outcome{URL: url, Record: record}
}

// Failed builds a failed Outcome carrying the terminal reason.
func Failed(url string, err error) Outcome {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Outcome{URL: url, Err: err}
}

// Success reports whether the outcome carries a record.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Attr is one passthrough metadata column carried from the input table.
type Attr struct {
	Name  string
	Value string
}

// InputRow is a candidate URL plus its passthrough metadata.
type InputRow struct {
	URL  string
	Meta []Attr
}

// Row is one checkpoint table row.
type Row struct {
	URL    string
	Record Record
	Meta   []Attr
}

// MetaValue returns the passthrough value for name.
func (r Row) MetaValue(name string) (string, bool) {
	for _, a := range r.Meta {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// FetchError is the typed failure returned by Fetcher implementations.
type FetchError struct {
	URL string
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
