package usecase

import (
	"context"
	"sync"

	"github.com/coverly/docqa/internal/core/domain"
)

func scorePtr(v float64) *float64 { return &v }

type fakeEmbedder struct {
	queryVector []float32
	err         error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.queryVector == nil {
		return []float32{0.1, 0.2}, nil
	}
	return f.queryVector, nil
}

type fakeVectorIndex struct {
	hits    []domain.RetrievalCandidate
	err     error
	indexed []domain.Chunk
}

func (f *fakeVectorIndex) IndexChunks(_ context.Context, _ string, chunks []domain.Chunk, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, chunks...)
	return nil
}

func (f *fakeVectorIndex) Search(_ context.Context, _, _ string, _ []float32, _ int) ([]domain.RetrievalCandidate, error) {
	return f.hits, f.err
}

type fakeLexicalIndex struct {
	hits   []domain.RetrievalCandidate
	err    error
	called bool
}

func (f *fakeLexicalIndex) SearchLexical(_ context.Context, _, _, _ string, _ int) ([]domain.RetrievalCandidate, error) {
	f.called = true
	return f.hits, f.err
}

type fakeReranker struct {
	results []domain.RerankedResult
	err     error
	block   bool
	called  bool
}

func (f *fakeReranker) Rerank(ctx context.Context, _ string, _ []domain.RetrievalCandidate, _ int) ([]domain.RerankedResult, error) {
	f.called = true
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.results, f.err
}

type fakeChat struct {
	deltas []string
	err    error
	block  bool
}

func (f *fakeChat) StreamAnswer(ctx context.Context, _ string) (<-chan string, <-chan error) {
	deltas := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(deltas)
		defer close(errs)
		if f.block {
			// Stalled upstream: nothing arrives until the context ends.
			<-ctx.Done()
			return
		}
		for _, delta := range f.deltas {
			select {
			case <-ctx.Done():
				return
			case deltas <- delta:
			}
		}
		if f.err != nil {
			errs <- f.err
		}
	}()
	return deltas, errs
}

type fakeDocumentStore struct {
	doc    *domain.Document
	pages  []domain.PageContent
	getErr error

	mu       sync.Mutex
	saved    []domain.Chunk
	statuses []domain.DocumentStatus
	lastErr  string
}

func (f *fakeDocumentStore) GetDocument(_ context.Context, _, _ string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

func (f *fakeDocumentStore) GetPages(_ context.Context, _ string) ([]domain.PageContent, error) {
	return f.pages, nil
}

func (f *fakeDocumentStore) GetChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved, nil
}

func (f *fakeDocumentStore) SaveChunks(_ context.Context, _ string, chunks []domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = chunks
	return nil
}

func (f *fakeDocumentStore) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.lastErr = errMessage
	return nil
}

type fakeConversationStore struct {
	mu       sync.Mutex
	conv     *domain.Conversation
	history  []domain.Message
	appended []domain.Message
	created  []domain.Conversation
}

func (f *fakeConversationStore) GetConversation(_ context.Context, _, _ string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conv, nil
}

func (f *fakeConversationStore) CreateConversation(_ context.Context, conv domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, conv)
	return nil
}

func (f *fakeConversationStore) AppendMessage(_ context.Context, msg domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, msg)
	return nil
}

func (f *fakeConversationStore) ListRecentMessages(_ context.Context, _ string, _ int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeConversationStore) appendedMessages() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, len(f.appended))
	copy(out, f.appended)
	return out
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) SummarizeTable(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type fakeChunkBuilder struct {
	chunks []domain.Chunk
}

func (f *fakeChunkBuilder) Build(_ string, _ []domain.PageContent) []domain.Chunk {
	return f.chunks
}
