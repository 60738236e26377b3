package suggest

import "strings"

// Suggestion is one follow-up the user can send as-is: Short is the display
// label, Full the ready-to-send message.
type Suggestion struct {
	Short string `json:"short"`
	Full  string `json:"full"`
}

// SuggestionSet is an ordered list of suggestions. Order is display order
// only.
type SuggestionSet []Suggestion

// minFullWords is the minimum whitespace-delimited token count for a
// suggestion's Full text to count as ready-to-send.
const minFullWords = 15

// Valid reports whether the suggestion has both fields and a substantial
// Full text.
func (s Suggestion) Valid() bool {
	if s.Short == "" || s.Full == "" {
		return false
	}
	return len(strings.Fields(s.Full)) >= minFullWords
}
