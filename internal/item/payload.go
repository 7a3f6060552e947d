package item

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Payload is a create or update request body. Every field is kept raw so
// that values of the wrong shape can be defaulted instead of failing the
// whole decode.
type Payload struct {
	Name        json.RawMessage `json:"name"`
	Description json.RawMessage `json:"description"`
	Tags        json.RawMessage `json:"tags"`
	Details     json.RawMessage `json:"details"`
	Reviews     json.RawMessage `json:"reviews"`
	Comments    json.RawMessage `json:"comments"`
}

// CommentPayload is the body of a comment submission.
type CommentPayload struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// Normalize converts p into Fields and validates the result. Scalars are
// converted the way a loosely-typed document store would: numbers and
// booleans become text, numeric strings become numbers, and date-only
// strings become dates. The returned error, if any, is a *ValidationError
// listing every violation found, at most one per field.
func (p Payload) Normalize(now time.Time) (Fields, error) {
	var (
		f    Fields
		errs []Violation
		v    *Violation
	)

	f.Name, v = decodeText(p.Name, "name")
	errs = appendViolation(errs, v)

	var desc string
	desc, v = decodeText(p.Description, "description")
	errs = appendViolation(errs, v)
	if v == nil && !isNull(p.Description) {
		f.Description = &desc
	}

	f.Tags, v = decodeArray(p.Tags, "tags", func(raw json.RawMessage) (string, bool) {
		if isNull(raw) {
			return "", false
		}
		return scalarText(raw)
	})
	errs = appendViolation(errs, v)

	f.Details = decodeDetails(p.Details)

	f.Reviews, v = decodeArray(p.Reviews, "reviews", decodeReview)
	errs = appendViolation(errs, v)

	f.Comments, v = decodeArray(p.Comments, "comments", decodeComment)
	errs = appendViolation(errs, v)
	for i := range f.Comments {
		if strings.TrimSpace(f.Comments[i].User) == "" {
			f.Comments[i].User = DefaultCommentUser
		}
		if f.Comments[i].Date.IsZero() {
			f.Comments[i].Date = now
		}
	}

	if err := defaultValidator.Validate(f); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return f, err
		}
		errs = append(withoutFields(ve.Violations, errs), errs...)
	}
	if len(errs) > 0 {
		return f, &ValidationError{Violations: errs}
	}
	return f, nil
}

// NewComment builds a comment from a submission, applying the default user.
func NewComment(p CommentPayload, now time.Time) (Comment, error) {
	c := Comment{User: strings.TrimSpace(p.User), Text: p.Text, Date: now}
	if c.User == "" {
		c.User = DefaultCommentUser
	}
	if err := defaultValidator.Validate(c); err != nil {
		return c, err
	}
	return c, nil
}

func appendViolation(errs []Violation, v *Violation) []Violation {
	if v == nil {
		return errs
	}
	return append(errs, *v)
}

// withoutFields drops the violations in vs whose field already has a
// violation in seen.
func withoutFields(vs, seen []Violation) []Violation {
	out := make([]Violation, 0, len(vs))
	for _, v := range vs {
		dup := false
		for _, s := range seen {
			if s.Field == v.Field {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// scalarText reads a JSON string, number or boolean as text.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	case '{', '[', 'n':
		return "", false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return strconv.FormatFloat(n, 'f', -1, 64), true
}

// decodeText accepts a JSON scalar as text, or null/absent as "".
func decodeText(raw json.RawMessage, field string) (string, *Violation) {
	if isNull(raw) {
		return "", nil
	}
	s, ok := scalarText(raw)
	if !ok {
		return "", &Violation{Field: field, Reason: ReasonInvalid, Message: field + " must be text"}
	}
	return s, nil
}

// decodeArray returns an empty slice for anything that is not a JSON array,
// and a violation when an element cannot be read by elem.
func decodeArray[T any](raw json.RawMessage, field string, elem func(json.RawMessage) (T, bool)) ([]T, *Violation) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []T{}, nil
	}
	invalid := &Violation{
		Field:   field,
		Reason:  ReasonInvalid,
		Message: fmt.Sprintf("%s contains an invalid element", field),
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []T{}, invalid
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		v, ok := elem(e)
		if !ok {
			return []T{}, invalid
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeObject reads a JSON object into its raw members.
func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// optionalText is decodeText for object members, reporting failure as false.
func optionalText(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", true
	}
	return scalarText(raw)
}

func decodeReview(raw json.RawMessage) (Review, bool) {
	var r Review
	m, ok := decodeObject(raw)
	if !ok {
		return r, false
	}
	if r.User, ok = optionalText(m["user"]); !ok {
		return r, false
	}
	if r.Comment, ok = optionalText(m["comment"]); !ok {
		return r, false
	}
	if r.Rating, ok = parseNumber(m["rating"]); !ok {
		return r, false
	}
	if r.Date, ok = parseDate(m["date"]); !ok {
		return r, false
	}
	return r, true
}

func decodeComment(raw json.RawMessage) (Comment, bool) {
	var c Comment
	m, ok := decodeObject(raw)
	if !ok {
		return c, false
	}
	if c.User, ok = optionalText(m["user"]); !ok {
		return c, false
	}
	if c.Text, ok = optionalText(m["text"]); !ok {
		return c, false
	}
	date, ok := parseDate(m["date"])
	if !ok {
		return c, false
	}
	if date != nil {
		c.Date = *date
	}
	return c, true
}

func decodeDetails(raw json.RawMessage) Details {
	var d Details
	m, ok := decodeObject(raw)
	if !ok {
		return d
	}
	var s string
	if json.Unmarshal(m["manufacturer"], &s) == nil {
		d.Manufacturer = s
	}
	d.WarrantyPeriod = coerceNumber(m["warrantyPeriod"])
	return d
}

// coerceNumber reads a JSON number or a numeric string. Anything else,
// including NaN and infinities, yields nil.
func coerceNumber(raw json.RawMessage) *float64 {
	n, _ := parseNumber(raw)
	return n
}

// parseNumber reads a JSON number or a numeric string. Null, absent and
// blank strings yield nil; any other value is reported as not ok.
func parseNumber(raw json.RawMessage) (*float64, bool) {
	if isNull(raw) {
		return nil, true
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, false
	}
	return &n, true
}

// dateLayouts are tried in order when reading a date string.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate reads an RFC 3339 timestamp, a date-only or zone-less string
// (taken as UTC), or a number of milliseconds since the epoch. Null and
// absent yield nil.
func parseDate(raw json.RawMessage) (*time.Time, bool) {
	if isNull(raw) {
		return nil, true
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		t := time.UnixMilli(int64(ms)).UTC()
		return &t, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}
