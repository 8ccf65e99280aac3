package annotation

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// searchDoc is the indexed projection of an annotation.
type searchDoc struct {
	Selector  string `json:"selector"`
	Component string `json:"component"`
	Comment   string `json:"comment"`
	Prompt    string `json:"prompt"`
	Status    string `json:"status"`
}

// Index is an in-memory full-text index over annotation comments,
// selectors, and component names. Kept in sync from store notifications via
// Sync; queries return annotation IDs ranked by relevance.
type Index struct {
	mu    sync.Mutex
	idx   bleve.Index
	known map[string]bool // IDs currently indexed
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("annotation: new index: %w", err)
	}
	return &Index{idx: idx, known: make(map[string]bool)}, nil
}

// Sync reconciles the index with the current mapping: new and updated
// annotations are (re)indexed, removed ones are deleted.
func (x *Index) Sync(m map[string]Annotation) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for id := range x.known {
		if _, ok := m[id]; !ok {
			if err := x.idx.Delete(id); err != nil {
				return fmt.Errorf("annotation: index delete %s: %w", id, err)
			}
			delete(x.known, id)
		}
	}
	for id, a := range m {
		doc := searchDoc{
			Selector:  a.Selector,
			Component: a.Target.Component,
			Comment:   a.Comment,
			Prompt:    a.Prompt,
			Status:    string(a.Status),
		}
		if err := x.idx.Index(id, doc); err != nil {
			return fmt.Errorf("annotation: index %s: %w", id, err)
		}
		x.known[id] = true
	}
	return nil
}

// Search returns annotation IDs matching the query, best first, at most
// limit results (default 20).
func (x *Index) Search(query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit

	x.mu.Lock()
	res, err := x.idx.Search(req)
	x.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("annotation: search: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.idx.Close()
}
