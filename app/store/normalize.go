package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultTitle is displayed for records without a title.
const DefaultTitle = "Distinguished Alumni"

// RawRecord is a record as it comes from a backend, before normalization.
// Structured fields may hold a JSON array, a JSON-encoded string, null or garbage.
type RawRecord struct {
	Key        Text            `json:"slug"`
	Title      Text            `json:"name"`
	Role       Text            `json:"role"`
	Headline   Text            `json:"headline"`
	Summary    Text            `json:"summary"`
	Media      Text            `json:"image"`
	Tags       json.RawMessage `json:"tags"`
	Metrics    json.RawMessage `json:"stats"`
	Highlights json.RawMessage `json:"achievements"`
	Paragraphs json.RawMessage `json:"story"`
	Quote      Text            `json:"quote"`
	QuoteBy    Text            `json:"quoteBy"`
}

// Text is a scalar field that tolerates numbers, booleans and nulls in place of strings.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	s, _ := scalar(b)
	*t = Text(s)
	return nil
}

// Normalizer converts raw records into the canonical shape.
type Normalizer struct {
	// MediaBase is the absolute URL the media filenames are resolved against.
	MediaBase string
	// Placeholder is used for records without media.
	Placeholder string
}

// DisplayTitle returns the title or the default one, if the record has none.
func (r Record) DisplayTitle() string {
	if r.Title == "" {
		return DefaultTitle
	}
	return r.Title
}

// Normalize converts the raw record into a Record. It never fails, malformed
// structured fields become empty sequences.
func (n Normalizer) Normalize(raw RawRecord) Record {
	rec := Record{
		Key:        Slugify(string(raw.Key)),
		Title:      strings.TrimSpace(string(raw.Title)),
		Role:       strings.TrimSpace(string(raw.Role)),
		Headline:   strings.TrimSpace(string(raw.Headline)),
		Summary:    strings.TrimSpace(string(raw.Summary)),
		Media:      n.media(string(raw.Media)),
		Tags:       texts(raw.Tags),
		Metrics:    metrics(raw.Metrics),
		Highlights: texts(raw.Highlights),
		Paragraphs: texts(raw.Paragraphs),
		Quote:      strings.TrimSpace(string(raw.Quote)),
		QuoteBy:    strings.TrimSpace(string(raw.QuoteBy)),
	}

	if rec.Key == "" {
		rec.Key = Slugify(rec.Title)
	}

	return rec
}

// normalizeAll normalizes a fetched set of records, dropping the ones without
// a key and duplicates. The first occurrence of a key wins.
func (n Normalizer) normalizeAll(raws []RawRecord) []Record {
	recs := lo.Map(raws, func(raw RawRecord, _ int) Record { return n.Normalize(raw) })
	recs = lo.Filter(recs, func(rec Record, _ int) bool { return rec.Key != "" })
	return lo.UniqBy(recs, func(rec Record) string { return rec.Key })
}

func (n Normalizer) media(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return n.Placeholder
	}

	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		return s
	}

	name := path.Base(s)
	if name == "." || name == "/" {
		return n.Placeholder
	}

	return strings.TrimRight(n.MediaBase, "/") + "/" + name
}

// apply filters out the excluded key and caps the result.
func (req ListRequest) apply(recs []Record) []Record {
	if exclude := Slugify(req.ExcludeKey); exclude != "" {
		recs = lo.Filter(recs, func(rec Record, _ int) bool { return rec.Key != exclude })
	}

	if req.Limit > 0 && len(recs) > req.Limit {
		recs = recs[:req.Limit]
	}

	return slices.Clone(recs)
}

// lookup finds the record by its normalized key in the whole list. Backends
// keyed by the stored key use it when the stored key differs from the
// normalized one, e.g. it is empty or not slug-shaped.
func lookup(ctx context.Context, list func(context.Context, ListRequest) ([]Record, error), key string) (Record, error) {
	recs, err := list(ctx, ListRequest{})
	if err != nil {
		return Record{}, err
	}

	if rec, found := lo.Find(recs, func(rec Record) bool { return rec.Key == key }); found {
		return rec, nil
	}

	return Record{}, ErrNotFound
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify makes a URL-safe key out of an arbitrary title: diacritics are
// stripped, everything but latin letters and digits collapses into single hyphens.
func Slugify(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}

	folded = strings.ToLower(folded)
	return strings.Trim(slugSeparators.ReplaceAllString(folded, "-"), "-")
}

// errNotSequence is returned when a structured field holds something other than an array.
var errNotSequence = errors.New("not a sequence")

// sequence decodes a structured field into its elements.
// A JSON string is decoded once more, as the backends keep JSONB columns as text.
func sequence(raw json.RawMessage) ([]json.RawMessage, error) {
	if isNull(raw) {
		return nil, nil
	}

	raw = bytes.TrimSpace(raw)
	switch raw[0] {
	case '[':
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		raw = []byte(s)
	default:
		return nil, errNotSequence
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func texts(raw json.RawMessage) []string {
	res := []string{}

	items, err := sequence(raw)
	if err != nil {
		return res
	}

	for _, item := range items {
		if s, ok := scalar(item); ok {
			res = append(res, s)
		}
	}

	return res
}

func metrics(raw json.RawMessage) []Metric {
	res := []Metric{}

	items, err := sequence(raw)
	if err != nil {
		return res
	}

	for _, item := range items {
		var m struct {
			Value Text `json:"value"`
			Label Text `json:"label"`
		}
		// non-object elements still occupy a slot, as an empty metric
		_ = json.Unmarshal(item, &m)
		res = append(res, Metric{Value: string(m.Value), Label: string(m.Label)})
	}

	return res
}

// scalar returns the text of a JSON string, number or boolean.
func scalar(raw json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}

	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}
