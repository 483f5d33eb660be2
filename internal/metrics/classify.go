package metrics

import "strings"

// violentOffenses and propertyOffenses partition police offense labels into
// the buckets the crime sub-score weights. Matching is substring-based on
// the lowercased label; anything unmatched falls into the "other" bucket.
var violentOffenses = []string{
	"assault", "robbery", "homicide", "sexual", "abduction", "threat",
	"harass", "weapon",
}

var propertyOffenses = []string{
	"break and enter", "breaking", "theft", "mischief", "arson", "fraud",
	"shoplifting", "stolen", "burglary",
}

// ClassifyCrime maps a raw offense label to a crime bucket.
func ClassifyCrime(offense string) string {
	label := strings.ToLower(offense)
	for _, kw := range violentOffenses {
		if strings.Contains(label, kw) {
			return CrimeViolent
		}
	}
	for _, kw := range propertyOffenses {
		if strings.Contains(label, kw) {
			return CrimeProperty
		}
	}
	return CrimeOther
}
