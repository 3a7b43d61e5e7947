package domain

import "unicode/utf8"

// EstimateTokens approximates model token count as one token per four
// runes, rounded up. Budgets calibrated against this estimator must be
// re-tuned if the estimator changes.
func EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	return (runes + 3) / 4
}
