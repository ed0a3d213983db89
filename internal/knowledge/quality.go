package knowledge

import "unicode/utf8"

// Extraction quality gates, spec §4.6.1.
const (
	MinMessagesForExtraction = 25
	MaxExtractionInputRunes  = 150000
	MinExtractionConfidence  = 0.70
	MinResultsPerExtraction  = 10
	MaxResultsPerExtraction  = 15
)

// EligibleForExtraction reports whether a session has accumulated enough
// messages to run the extractor.
func EligibleForExtraction(messageCount int) bool {
	return messageCount >= MinMessagesForExtraction
}

// TruncateForExtraction caps text at MaxExtractionInputRunes, keeping the
// tail so the most recent context survives truncation.
func TruncateForExtraction(text string) string {
	if utf8.RuneCountInString(text) <= MaxExtractionInputRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[len(runes)-MaxExtractionInputRunes:])
}

// PassesConfidenceGate reports whether an extracted item's confidence
// clears the discard floor.
func PassesConfidenceGate(confidence float64) bool {
	return confidence >= MinExtractionConfidence
}

// ClampResultCount caps a result count at cap, used when an extraction
// pass returns more than the feature's configured cap allows. A cap that
// is non-positive or above MaxResultsPerExtraction is replaced by
// MaxResultsPerExtraction. A count below the cap is returned unchanged;
// MinResultsPerExtraction is not enforced here.
func ClampResultCount(count, cap int) int {
	if cap <= 0 || cap > MaxResultsPerExtraction {
		cap = MaxResultsPerExtraction
	}
	if count > cap {
		return cap
	}
	return count
}
