// Package dedupe flags stored records that plausibly describe the same
// person as a new submission. Matches are hints for a human to confirm, so
// the policy deliberately prefers false positives over false negatives.
package dedupe

import (
	"context"
	"strings"
	"unicode"

	"rollcall/internal/registration/models"
)

// Query carries the fields a candidate scan can match on. Empty fields never
// match anything.
type Query struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// RecordSource is the read-only slice of the store the scan needs.
type RecordSource interface {
	All(ctx context.Context) ([]*models.Record, error)
}

// FindCandidates scans the store and returns records matching the query by
// phone or by name, in the store's insertion order. Each call is a fresh
// scan. An empty result is a normal outcome.
func FindCandidates(ctx context.Context, q Query, source RecordSource) ([]*models.Record, error) {
	records, err := source.All(ctx)
	if err != nil {
		return nil, err
	}

	var out []*models.Record
	for _, rec := range records {
		if phonesMatch(q.Phone, rec.Phone) || namesMatch(q.FullName, rec.FullName) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// phonesMatch compares phone values with all whitespace stripped, so
// "034 00 00 00" and "0340000000" are the same number.
func phonesMatch(a, b string) bool {
	a, b = stripSpace(a), stripSpace(b)
	if a == "" || b == "" {
		return false
	}
	return a == b
}

// namesMatch is a case-insensitive substring test in either direction, so a
// partial-name query still surfaces the full stored name.
func namesMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
