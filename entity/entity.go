// Package entity extracts structured entities from free text using
// pattern matching.
//
// Five matchers run independently over the same text: email addresses,
// phone numbers, dates, monetary amounts, and URLs. Each matcher
// deduplicates its own matches by exact string equality; there is no
// normalization and no cross-type deduplication, so the same substring
// can appear under two types if it satisfies both patterns.
//
// Extraction is a pure function of the input text: no state, no I/O,
// never an error. Text with no matches yields empty (non-nil) slices.
package entity

import "regexp"

// Set holds the extracted entities, one deduplicated slice per type.
// Slices keep first-occurrence order.
type Set struct {
	Emails  []string `json:"emails"`
	Phones  []string `json:"phones"`
	Dates   []string `json:"dates"`
	Amounts []string `json:"amounts"`
	URLs    []string `json:"urls"`
}

// Total returns the number of extracted entities across all types.
func (s Set) Total() int {
	return len(s.Emails) + len(s.Phones) + len(s.Dates) + len(s.Amounts) + len(s.URLs)
}

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Three independent phone shapes. A number written in more than one
// shape survives as distinct strings; dedup is exact-string only.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`), // 123-456-7890, 123.456.7890, 1234567890
	regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.]?\d{4}\b`), // (123) 456-7890
	regexp.MustCompile(`\+\d{1,3}\s?\d{1,14}\b`),        // +1 234567890
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`), // 12/31/2024, 12-31-24
	regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),   // 2024-12-31
	regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`),
}

// Currency-symbol prefix ($1,200.50) or bare number with a currency
// code/word suffix (100 USD, 50 dollars).
var amountPattern = regexp.MustCompile(`(?i)\$\s?\d+(?:,\d{3})*(?:\.\d{2})?|\d+(?:,\d{3})*(?:\.\d{2})?\s?(?:USD|INR|EUR|GBP|dollars?|rupees?)`)

var urlPattern = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

// Emails returns the deduplicated email addresses found in text.
func Emails(text string) []string {
	return dedup(emailPattern.FindAllString(text, -1))
}

// Phones returns the deduplicated phone numbers found in text.
func Phones(text string) []string {
	var all []string
	for _, pat := range phonePatterns {
		all = append(all, pat.FindAllString(text, -1)...)
	}
	return dedup(all)
}

// Dates returns the deduplicated dates found in text.
func Dates(text string) []string {
	var all []string
	for _, pat := range datePatterns {
		all = append(all, pat.FindAllString(text, -1)...)
	}
	return dedup(all)
}

// Amounts returns the deduplicated monetary amounts found in text.
func Amounts(text string) []string {
	return dedup(amountPattern.FindAllString(text, -1))
}

// URLs returns the deduplicated http/https URLs found in text.
func URLs(text string) []string {
	return dedup(urlPattern.FindAllString(text, -1))
}

// ExtractAll runs every matcher over text and returns the combined set.
func ExtractAll(text string) Set {
	return Set{
		Emails:  Emails(text),
		Phones:  Phones(text),
		Dates:   Dates(text),
		Amounts: Amounts(text),
		URLs:    URLs(text),
	}
}

func dedup(matches []string) []string {
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
