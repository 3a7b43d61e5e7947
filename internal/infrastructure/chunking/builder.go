package chunking

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/coverly/docqa/internal/core/domain"
)

// Builder splits parsed pages into retrieval chunks. Text is split
// recursively along a separator hierarchy (paragraph, line, sentence,
// whitespace) against a token budget with a fixed overlap between adjacent
// chunks. A detected table is always emitted as one chunk regardless of
// size.
type Builder struct {
	tokenSize int
	overlap   int
}

func NewBuilder(tokenSize, overlap int) *Builder {
	if tokenSize <= 0 {
		tokenSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= tokenSize {
		overlap = tokenSize / 4
	}
	return &Builder{tokenSize: tokenSize, overlap: overlap}
}

func (b *Builder) Build(documentID string, pages []domain.PageContent) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(pages))
	ordinal := 0

	appendChunk := func(page int, chunkType domain.ChunkType, text string, region *domain.BoundingBox) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Ordinal:    ordinal,
			PageNumber: page,
			Type:       chunkType,
			Text:       text,
			Region:     region,
		})
		ordinal++
	}

	for _, page := range pages {
		for _, seg := range pageSegments(page) {
			if seg.table != nil {
				appendChunk(page.PageNumber, domain.ChunkTypeTable, seg.text, seg.table.Region)
				continue
			}
			pieces := b.splitText(seg.text, 0)
			pieces = b.applyOverlap(pieces)
			for _, piece := range pieces {
				appendChunk(page.PageNumber, domain.ChunkTypeText, piece, nil)
			}
		}
	}
	return chunks
}

type segment struct {
	text  string
	table *domain.TableRegion
}

// pageSegments carves a page into alternating text and table segments by
// rune offsets. Malformed or overlapping table regions degrade the whole
// page to plain text chunking; ingestion never fails over table handling.
func pageSegments(page domain.PageContent) []segment {
	runes := []rune(page.Text)
	tables := make([]domain.TableRegion, len(page.Tables))
	copy(tables, page.Tables)
	sort.Slice(tables, func(i, j int) bool { return tables[i].StartOffset < tables[j].StartOffset })

	prevEnd := 0
	for _, table := range tables {
		if table.StartOffset < prevEnd || table.EndOffset <= table.StartOffset || table.EndOffset > len(runes) {
			return []segment{{text: page.Text}}
		}
		prevEnd = table.EndOffset
	}

	segments := make([]segment, 0, 2*len(tables)+1)
	cursor := 0
	for i := range tables {
		table := tables[i]
		if table.StartOffset > cursor {
			segments = append(segments, segment{text: string(runes[cursor:table.StartOffset])})
		}
		segments = append(segments, segment{
			text:  string(runes[table.StartOffset:table.EndOffset]),
			table: &tables[i],
		})
		cursor = table.EndOffset
	}
	if cursor < len(runes) {
		segments = append(segments, segment{text: string(runes[cursor:])})
	}
	return segments
}

type tier struct {
	split func(string) []string
	join  string
}

var tiers = []tier{
	{split: splitParagraphs, join: "\n\n"},
	{split: splitLines, join: "\n"},
	{split: splitSentences, join: " "},
	{split: splitWords, join: " "},
}

// splitText recursively splits text at the given separator tier, merging
// sibling pieces back together greedily while they fit the token budget.
// A tier is only descended past for pieces that still exceed the budget.
func (b *Builder) splitText(text string, level int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if domain.EstimateTokens(text) <= b.tokenSize {
		return []string{text}
	}
	if level >= len(tiers) {
		return b.hardSplit(text)
	}

	pieces := tiers[level].split(text)
	if len(pieces) <= 1 {
		return b.splitText(text, level+1)
	}

	out := make([]string, 0, len(pieces))
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if domain.EstimateTokens(piece) > b.tokenSize {
			flush()
			out = append(out, b.splitText(piece, level+1)...)
			continue
		}
		candidate := piece
		if current.Len() > 0 {
			candidate = current.String() + tiers[level].join + piece
		}
		if domain.EstimateTokens(candidate) > b.tokenSize {
			flush()
			current.WriteString(piece)
			continue
		}
		current.Reset()
		current.WriteString(candidate)
	}
	flush()
	return out
}

// applyOverlap prefixes each chunk after the first with the tail of its
// predecessor. The tail is capped so the result never exceeds
// tokenSize + overlap tokens.
func (b *Builder) applyOverlap(pieces []string) []string {
	if b.overlap <= 0 || len(pieces) < 2 {
		return pieces
	}
	out := make([]string, len(pieces))
	out[0] = pieces[0]
	for i := 1; i < len(pieces); i++ {
		tail := tailRunes(pieces[i-1], b.overlap*4-1)
		if tail == "" {
			out[i] = pieces[i]
			continue
		}
		out[i] = tail + " " + pieces[i]
	}
	return out
}

// tailRunes returns at most maxRunes trailing runes, preferring to start at
// a word boundary.
func tailRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if maxRunes <= 0 {
		return ""
	}
	if len(runes) <= maxRunes {
		return s
	}
	tail := runes[len(runes)-maxRunes:]
	if idx := strings.IndexRune(string(tail), ' '); idx >= 0 {
		return strings.TrimSpace(string(tail)[idx:])
	}
	return string(tail)
}

func (b *Builder) hardSplit(text string) []string {
	runes := []rune(text)
	step := b.tokenSize * 4
	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + step
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func splitParagraphs(s string) []string {
	return strings.Split(s, "\n\n")
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

func splitSentences(s string) []string {
	out := make([]string, 0, 8)
	start := 0
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && runes[i+1] != ' ' && runes[i+1] != '\t' {
				continue
			}
			out = append(out, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func splitWords(s string) []string {
	return strings.Fields(s)
}
