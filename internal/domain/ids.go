package domain

import "strings"

// NormalizeQuestionID returns the canonical form of a question ID: trimmed,
// lower-cased and always carrying the "q" prefix ("1A" and "q1a" are the same
// question). An empty result means the ID is unusable.
func NormalizeQuestionID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" || id == "q" {
		return ""
	}
	if !strings.HasPrefix(id, "q") {
		id = "q" + id
	}
	return id
}

// NormalizeOptionID trims surrounding whitespace from an option ID.
func NormalizeOptionID(raw string) string {
	return strings.TrimSpace(raw)
}

// NormalizeAnswerSet canonicalizes question IDs, drops blank and duplicate
// option IDs and removes entries left without a selection. Entries whose IDs
// collapse to the same canonical question are merged in input order.
func NormalizeAnswerSet(in AnswerSet) AnswerSet {
	out := make(AnswerSet, len(in))
	for rawID, selected := range in {
		questionID := NormalizeQuestionID(rawID)
		if questionID == "" {
			continue
		}
		merged := out[questionID]
		for _, rawOption := range selected {
			optionID := NormalizeOptionID(rawOption)
			if optionID == "" || contains(merged, optionID) {
				continue
			}
			merged = append(merged, optionID)
		}
		if len(merged) > 0 {
			out[questionID] = merged
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
