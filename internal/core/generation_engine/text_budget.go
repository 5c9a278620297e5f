package generation_engine

import "strings"

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}

// FitToBudget keeps whole lines from the start of text while the estimated token
// count stays within maxTokens. A first line that alone exceeds the budget is cut.
// maxTokens <= 0 means no limit.
func FitToBudget(text string, maxTokens int) string {
	if maxTokens <= 0 || approxTokens(text) <= maxTokens {
		return text
	}

	var (
		kept   []string
		tokSum int
	)
	for _, line := range strings.Split(text, "\n") {
		t := approxTokens(line)
		if tokSum+t > maxTokens {
			if len(kept) == 0 {
				runes := []rune(line)
				kept = append(kept, string(runes[:maxTokens*4]))
			}
			break
		}
		kept = append(kept, line)
		tokSum += t
	}
	return strings.Join(kept, "\n")
}
