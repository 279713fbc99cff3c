package catalog

import (
	"context"
	"strings"
	"sync"
)

// Static is an in-memory catalog. Search matches name, brand, category and
// description case-insensitively.
type Static struct {
	mu       sync.RWMutex
	products []Product
	err      error
}

var _ Catalog = (*Static)(nil)

func NewStatic(products ...Product) *Static {
	return &Static{products: append([]Product(nil), products...)}
}

// FailWith makes every subsequent call return err; nil restores normal behavior.
func (s *Static) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Static) Search(_ context.Context, q Query) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]Product, 0)
	if needle == "" {
		return out, nil
	}
	for _, p := range s.products {
		haystack := strings.ToLower(strings.Join([]string{p.Name, p.Brand, p.Category, p.Description}, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, p)
		}
	}
	return filterMaxPrice(out, q.MaxPrice), nil
}

func (s *Static) ByCategory(_ context.Context, category string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	out := make([]Product, 0)
	for _, p := range s.products {
		if strings.EqualFold(p.Category, strings.TrimSpace(category)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Static) Get(_ context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	for _, p := range s.products {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}
