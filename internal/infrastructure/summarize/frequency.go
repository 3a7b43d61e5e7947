package summarize

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// FrequencySummarizer builds a short extractive summary of a table by
// ranking its rows by token frequency. It needs no external service, so it
// serves as the degraded fallback when the model-backed summarizer is
// unavailable.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	maxRows      int
}

func NewFrequencySummarizer(maxRows int) *FrequencySummarizer {
	if maxRows <= 0 {
		maxRows = 5
	}
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+`),
		maxRows:      maxRows,
	}
}

// SummarizeTable keeps the header row and the most representative content
// rows, in their original order.
func (s *FrequencySummarizer) SummarizeTable(_ context.Context, tableText string) (string, error) {
	rows := tableRows(tableText)
	if len(rows) == 0 {
		return strings.TrimSpace(tableText), nil
	}
	if len(rows) <= s.maxRows {
		return strings.Join(rows, "\n"), nil
	}

	header := rows[0]
	body := rows[1:]

	freq := map[string]float64{}
	for _, row := range body {
		for _, tok := range s.tokens(row) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(body))
	for i, row := range body {
		toks := s.tokens(row)
		total := 0.0
		for _, tok := range toks {
			total += freq[tok]
		}
		if n := float64(len(toks)); n > 0 {
			total /= math.Sqrt(n)
		}
		scores[i] = scored{idx: i, score: total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	keep := s.maxRows - 1
	if keep > len(scores) {
		keep = len(scores)
	}
	selected := scores[:keep]
	sort.Slice(selected, func(i, j int) bool { return selected[i].idx < selected[j].idx })

	out := make([]string, 0, keep+1)
	out = append(out, header)
	for _, sc := range selected {
		out = append(out, body[sc.idx])
	}
	return strings.Join(out, "\n"), nil
}

func (s *FrequencySummarizer) tokens(row string) []string {
	return s.tokenPattern.FindAllString(strings.ToLower(row), -1)
}

func tableRows(tableText string) []string {
	lines := strings.Split(tableText, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Markdown separator rows carry no content.
		if strings.Trim(line, "|-: ") == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
