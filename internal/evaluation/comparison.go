package evaluation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
)

// RecordComparison is the field-by-field comparison of one merged record
type RecordComparison struct {
	Fields           map[string]FieldComparison `yaml:"fields"`
	OverallScore     float64                    `yaml:"overallscore"`
	FieldsMatched    int                        `yaml:"fieldsmatched"`
	FieldsMissing    int                        `yaml:"fieldsmissing"`
	FieldsIncorrect  int                        `yaml:"fieldsincorrect"`
	LevenshteinTotal int                        `yaml:"levenshteintotal"`
}

// FieldComparison represents comparison for a single contact field
type FieldComparison struct {
	FieldName string  `yaml:"field"`
	Expected  string  `yaml:"expected"`
	Actual    string  `yaml:"actual"`
	Score     float64 `yaml:"score"`    // 0.0 to 1.0
	Distance  int     `yaml:"distance"` // Levenshtein distance
	Match     string  `yaml:"match"`    // "exact", "fuzzy_high", "fuzzy_medium", "fuzzy_low", "no_match", "missing", "both_empty", "no_reference"
	Notes     string  `yaml:"notes,omitempty"`
}

// CompareRecord scores actual against expected for every merge field
func CompareRecord(expected, actual models.MergedRecord) *RecordComparison {
	comparison := &RecordComparison{
		Fields: make(map[string]FieldComparison, len(models.MergeFields)),
	}

	totalScore := 0.0
	for _, field := range models.MergeFields {
		comp := compareField(field, expected.Get(field), actual.Get(field))
		comparison.Fields[field] = comp
		totalScore += comp.Score
		comparison.LevenshteinTotal += comp.Distance

		switch {
		case comp.Match == "both_empty":
		case comp.Score > 0.8:
			comparison.FieldsMatched++
		case comp.Match == "missing":
			comparison.FieldsMissing++
		default:
			comparison.FieldsIncorrect++
		}
	}

	comparison.OverallScore = totalScore / float64(len(models.MergeFields))
	return comparison
}

// compareField compares a single field using Levenshtein distance
func compareField(fieldName, expected, actual string) FieldComparison {
	comp := FieldComparison{
		FieldName: fieldName,
		Expected:  expected,
		Actual:    actual,
	}

	expNorm := normalizeText(expected)
	actNorm := normalizeText(actual)
	if fieldName == "phone" {
		expNorm = strings.ReplaceAll(expNorm, " ", "")
		actNorm = strings.ReplaceAll(actNorm, " ", "")
	}

	// a card without the field is a correct empty answer
	if expNorm == "" && actNorm == "" {
		comp.Score = 1.0
		comp.Match = "both_empty"
		return comp
	}

	if expNorm == "" {
		comp.Distance = len([]rune(actNorm))
		comp.Match = "no_reference"
		comp.Notes = "Value extracted for a field the card does not have"
		return comp
	}

	if actNorm == "" {
		comp.Distance = len([]rune(expNorm))
		comp.Match = "missing"
		comp.Notes = "Field missing from extracted record"
		return comp
	}

	if expNorm == actNorm {
		comp.Score = 1.0
		comp.Match = "exact"
		return comp
	}

	distance := levenshteinDistance(expNorm, actNorm)
	comp.Distance = distance

	maxLen := max(len([]rune(expNorm)), len([]rune(actNorm)))
	similarity := 1.0 - (float64(distance) / float64(maxLen))
	comp.Score = similarity

	switch {
	case similarity > 0.9:
		comp.Match = "fuzzy_high"
	case similarity > 0.7:
		comp.Match = "fuzzy_medium"
	case similarity > 0.5:
		comp.Match = "fuzzy_low"
	default:
		comp.Match = "no_match"
	}
	comp.Notes = fmt.Sprintf("Similarity %.1f%%, Levenshtein: %d", similarity*100, distance)

	return comp
}

var punctuation = regexp.MustCompile(`[^\w\s@.]`)

// normalizeText lowercases, collapses whitespace and drops punctuation other
// than the characters that matter in emails and domains.
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// levenshteinDistance calculates the edit distance between two strings in runes
func levenshteinDistance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
