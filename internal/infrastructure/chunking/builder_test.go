package chunking

import (
	"strings"
	"testing"

	"github.com/coverly/docqa/internal/core/domain"
)

func page(num int, text string, tables ...domain.TableRegion) domain.PageContent {
	return domain.PageContent{PageNumber: num, Text: text, Tables: tables}
}

func TestBuildSmallPageIsOneChunk(t *testing.T) {
	builder := NewBuilder(500, 50)

	chunks := builder.Build("d-1", []domain.PageContent{page(1, "A short page of text.")})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Type != domain.ChunkTypeText || chunks[0].PageNumber != 1 || chunks[0].Ordinal != 0 {
		t.Fatalf("chunk = %+v", chunks[0])
	}
}

func TestBuildRespectsTokenBudgetWithOverlap(t *testing.T) {
	builder := NewBuilder(50, 10)

	paragraphs := make([]string, 12)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("coverage terms apply here ", 6)
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := builder.Build("d-1", []domain.PageContent{page(1, text)})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if got := domain.EstimateTokens(chunk.Text); got > 50+10 {
			t.Fatalf("chunk %d is %d tokens, exceeds size+overlap", i, got)
		}
		if chunk.Ordinal != i {
			t.Fatalf("ordinals must be contiguous: chunk %d has ordinal %d", i, chunk.Ordinal)
		}
	}

	// Each chunk after the first starts with its predecessor's tail.
	head := strings.Fields(chunks[1].Text)[0]
	if !strings.Contains(chunks[0].Text, head) {
		t.Fatalf("chunk 1 must open with overlap from chunk 0")
	}
}

func TestBuildTableIsNeverSplit(t *testing.T) {
	builder := NewBuilder(20, 5)

	rows := make([]string, 60)
	for i := range rows {
		rows[i] = "| coverage item | $1,000,000 | per occurrence |"
	}
	table := strings.Join(rows, "\n")
	text := "Intro paragraph before the table.\n" + table + "\nClosing note after."
	start := len([]rune("Intro paragraph before the table.\n"))
	end := start + len([]rune(table))

	chunks := builder.Build("d-1", []domain.PageContent{
		page(1, text, domain.TableRegion{StartOffset: start, EndOffset: end,
			Region: &domain.BoundingBox{X: 0.1, Y: 0.3, Width: 0.8, Height: 0.5}}),
	})

	var tableChunks []domain.Chunk
	for _, chunk := range chunks {
		if chunk.Type == domain.ChunkTypeTable {
			tableChunks = append(tableChunks, chunk)
		}
	}
	if len(tableChunks) != 1 {
		t.Fatalf("expected exactly 1 table chunk, got %d", len(tableChunks))
	}
	if tableChunks[0].Text != table {
		t.Fatalf("table chunk must hold the whole table verbatim")
	}
	if tableChunks[0].Region == nil || tableChunks[0].Region.Width != 0.8 {
		t.Fatalf("table chunk must carry its bounding box, got %+v", tableChunks[0].Region)
	}
	// The table far exceeds the token budget; that is allowed only for tables.
	if domain.EstimateTokens(tableChunks[0].Text) <= 20 {
		t.Fatalf("test table should exceed the budget to prove the exemption")
	}
}

func TestBuildMalformedTableOffsetsDegradeToText(t *testing.T) {
	builder := NewBuilder(500, 50)

	chunks := builder.Build("d-1", []domain.PageContent{
		page(1, "Some page text.", domain.TableRegion{StartOffset: 10, EndOffset: 5}),
	})

	if len(chunks) != 1 || chunks[0].Type != domain.ChunkTypeText {
		t.Fatalf("malformed offsets must degrade the page to text, got %+v", chunks)
	}
}

func TestBuildOverlappingTableRegionsDegradeToText(t *testing.T) {
	builder := NewBuilder(500, 50)

	text := strings.Repeat("abcdefghij ", 10)
	chunks := builder.Build("d-1", []domain.PageContent{
		page(1, text,
			domain.TableRegion{StartOffset: 0, EndOffset: 30},
			domain.TableRegion{StartOffset: 20, EndOffset: 50}),
	})

	for _, chunk := range chunks {
		if chunk.Type == domain.ChunkTypeTable {
			t.Fatalf("overlapping regions must not produce table chunks")
		}
	}
}

func TestBuildSkipsEmptyPages(t *testing.T) {
	builder := NewBuilder(500, 50)

	chunks := builder.Build("d-1", []domain.PageContent{
		page(1, "   \n\n  "),
		page(2, "Real content."),
	})

	if len(chunks) != 1 || chunks[0].PageNumber != 2 {
		t.Fatalf("blank pages must yield no chunks, got %+v", chunks)
	}
}

func TestBuildHardSplitsUnbrokenText(t *testing.T) {
	builder := NewBuilder(10, 0)

	// No separators at all: 200 runes of a single word.
	text := strings.Repeat("x", 200)
	chunks := builder.Build("d-1", []domain.PageContent{page(1, text)})

	if len(chunks) != 5 {
		t.Fatalf("expected 5 hard-split chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if domain.EstimateTokens(chunk.Text) > 10 {
			t.Fatalf("hard-split chunk exceeds budget: %d tokens", domain.EstimateTokens(chunk.Text))
		}
	}
}
