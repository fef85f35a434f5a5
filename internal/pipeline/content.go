package pipeline

import (
	"context"
	"sync"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// MemoryProvider is an in-process ContentProvider backed by a registry of
// previously extracted content. Callers register content as it is produced;
// the pipeline fetches it by source reference. Safe for concurrent use.
type MemoryProvider struct {
	mu       sync.RWMutex
	contents map[string]domain.ExtractedContent
}

// NewMemoryProvider creates an empty in-process content provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		contents: make(map[string]domain.ExtractedContent),
	}
}

// Compile-time check that *MemoryProvider implements ContentProvider.
var _ ContentProvider = (*MemoryProvider)(nil)

// Register stores content under its source reference, replacing any previous
// registration for the same source.
func (p *MemoryProvider) Register(content domain.ExtractedContent) {
	key := contentRefKey(string(content.SourceType), content.SourceID)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.contents[key] = content
}

// Fetch returns the registered content for each reference, in reference
// order. An unregistered reference fails the whole fetch.
func (p *MemoryProvider) Fetch(_ context.Context, refs []SourceRef) ([]domain.ExtractedContent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	contents := make([]domain.ExtractedContent, 0, len(refs))
	for _, ref := range refs {
		content, ok := p.contents[contentRefKey(ref.Source, ref.ID)]
		if !ok {
			return nil, domain.NewNotFoundError("content source", ref.Source+":"+ref.ID)
		}
		contents = append(contents, content)
	}
	return contents, nil
}

// Len returns the number of registered content entries.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.contents)
}

func contentRefKey(source, id string) string {
	return source + ":" + id
}
