package ports

import (
	"context"

	"github.com/espalier-io/espalier/pkg/domain"
)

// FormRepository resolves form slugs to definitions. Implementations are
// read-only from the runtime's perspective; a form is loaded once per
// session and treated as immutable afterwards.
type FormRepository interface {
	// GetBySlug returns the form for a slug, or domain.ErrFormNotFound.
	GetBySlug(ctx context.Context, slug string) (*domain.Form, error)

	// ListSlugs returns every available form slug, for lint and tooling.
	ListSlugs(ctx context.Context) ([]string, error)
}
