// Package memory provides in-memory implementations of the Espalier ports:
// a FormRepository, a SubmissionStore, the reference RouteEvaluator, and a
// template ContentGenerator. They are the default wiring for tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/espalier-io/espalier/pkg/domain"
)

// Repository implements ports.FormRepository over a fixed set of forms.
type Repository struct {
	mu    sync.RWMutex
	forms map[string]*domain.Form
}

// NewRepository creates a repository holding the given forms, keyed by slug
// (falling back to the form id when the slug is empty).
func NewRepository(forms ...*domain.Form) *Repository {
	r := &Repository{forms: make(map[string]*domain.Form)}
	for _, f := range forms {
		r.Add(f)
	}
	return r
}

// Add registers a form. An existing form with the same slug is replaced.
func (r *Repository) Add(f *domain.Form) {
	slug := f.Slug
	if slug == "" {
		slug = f.ID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[slug] = f
}

// GetBySlug resolves a slug, or returns domain.ErrFormNotFound.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*domain.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.forms[slug]
	if !ok {
		return nil, domain.ErrFormNotFound
	}
	return f, nil
}

// ListSlugs returns the registered slugs, sorted.
func (r *Repository) ListSlugs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slugs := make([]string, 0, len(r.forms))
	for slug := range r.forms {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}
