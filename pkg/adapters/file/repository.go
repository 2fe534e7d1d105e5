// Package file loads form definitions from a directory of YAML documents,
// one form per file, the filename (minus extension) being the slug.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/espalier-io/espalier/pkg/domain"
)

// Repository implements ports.FormRepository over a directory of YAML files.
// Files are parsed lazily on first access and cached for the repository's
// lifetime; definitions are treated as immutable once deployed.
type Repository struct {
	dir string

	mu    sync.Mutex
	cache map[string]*domain.Form
}

// NewRepository creates a repository rooted at dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir, cache: make(map[string]*domain.Form)}
}

// GetBySlug loads and parses <dir>/<slug>.yaml (or .yml).
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*domain.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.cache[slug]; ok {
		return f, nil
	}

	path, err := r.resolve(slug)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form %s: %w", slug, err)
	}
	form, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse form %s: %w", slug, err)
	}
	form.Slug = slug
	r.cache[slug] = form
	return form, nil
}

// ListSlugs returns the slug of every YAML file in the directory, sorted.
func (r *Repository) ListSlugs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	var slugs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (r *Repository) resolve(slug string) (string, error) {
	if strings.ContainsAny(slug, `/\`) || slug == ".." {
		return "", domain.ErrFormNotFound
	}
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(r.dir, slug+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", domain.ErrFormNotFound
}

// fileForm is the YAML shape of a form document. Transitions are flattened
// onto the question entry (next / routes / default / end) rather than nested,
// which reads better in hand-written documents.
type fileForm struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Welcome   *fileWelcome   `yaml:"welcome"`
	Groups    []fileGroup    `yaml:"groups"`
	Questions []fileQuestion `yaml:"questions"`
}

type fileWelcome struct {
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
}

type fileGroup struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Questions []string `yaml:"questions"`
}

type fileQuestion struct {
	ID             string         `yaml:"id"`
	Kind           string         `yaml:"kind"`
	Text           string         `yaml:"text"`
	Required       bool           `yaml:"required"`
	Role           string         `yaml:"role"`
	AuthIdentifier bool           `yaml:"auth_identifier"`
	Prompt         string         `yaml:"prompt"`
	Settings       map[string]any `yaml:"settings"`

	Next    string      `yaml:"next"`
	Routes  []fileRoute `yaml:"routes"`
	Default string      `yaml:"default"`
	End     bool        `yaml:"end"`
}

type fileRoute struct {
	When fileCondition `yaml:"when"`
	To   string        `yaml:"to"`
	End  bool          `yaml:"end"`
}

type fileCondition struct {
	Question string `yaml:"question"`
	Op       string `yaml:"op"`
	Value    any    `yaml:"value"`
}

// Parse decodes one YAML form document.
func Parse(raw []byte) (*domain.Form, error) {
	var doc fileForm
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("form is missing an id")
	}

	form := &domain.Form{ID: doc.ID, Name: doc.Name}
	if doc.Welcome != nil {
		form.Welcome = &domain.Welcome{Title: doc.Welcome.Title, Message: doc.Welcome.Message}
	}
	for _, g := range doc.Groups {
		group := domain.Group{ID: g.ID, Title: g.Title}
		for _, id := range g.Questions {
			group.QuestionIDs = append(group.QuestionIDs, domain.QuestionID(id))
		}
		form.Groups = append(form.Groups, group)
	}
	for i := range doc.Questions {
		q, err := parseQuestion(&doc.Questions[i])
		if err != nil {
			return nil, fmt.Errorf("question %q: %w", doc.Questions[i].ID, err)
		}
		form.Questions = append(form.Questions, *q)
	}
	return form, nil
}

func parseQuestion(fq *fileQuestion) (*domain.Question, error) {
	kind := domain.QuestionKind(fq.Kind)
	if !validKind(kind) {
		return nil, fmt.Errorf("unknown kind %q", fq.Kind)
	}

	q := &domain.Question{
		ID:             domain.QuestionID(fq.ID),
		Kind:           kind,
		Text:           fq.Text,
		Required:       fq.Required,
		SemanticRole:   domain.SemanticRole(fq.Role),
		AuthIdentifier: fq.AuthIdentifier,
		Prompt:         fq.Prompt,
	}
	switch kind {
	case domain.KindEmail:
		if q.SemanticRole == domain.RoleNone {
			q.SemanticRole = domain.RoleEmail
		}
	case domain.KindPhone:
		if q.SemanticRole == domain.RoleNone {
			q.SemanticRole = domain.RolePhone
		}
	}

	if err := decodeSettings(fq.Settings, q); err != nil {
		return nil, err
	}

	transition, err := parseTransition(fq)
	if err != nil {
		return nil, err
	}
	q.Transition = transition
	return q, nil
}

// decodeSettings maps the free-form settings block onto the struct matching
// the question kind. ErrorUnused surfaces typos in hand-written documents.
func decodeSettings(settings map[string]any, q *domain.Question) error {
	var target any
	switch q.Kind {
	case domain.KindMultipleChoice:
		q.Choice = &domain.ChoiceSettings{}
		target = q.Choice
	case domain.KindNumber:
		q.Number = &domain.NumberSettings{}
		target = q.Number
	case domain.KindLikert:
		q.Likert = &domain.LikertSettings{}
		target = q.Likert
	default:
		if len(settings) > 0 {
			return fmt.Errorf("kind %s takes no settings", q.Kind)
		}
		return nil
	}
	if len(settings) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

func parseTransition(fq *fileQuestion) (domain.TransitionStrategy, error) {
	if len(fq.Routes) > 0 {
		if fq.Next != "" {
			return domain.TransitionStrategy{}, fmt.Errorf("next and routes are mutually exclusive")
		}
		t := domain.TransitionStrategy{}
		for _, fr := range fq.Routes {
			if fr.To == "" && !fr.End {
				return domain.TransitionStrategy{}, fmt.Errorf("route needs a target or end: true")
			}
			route := domain.Route{Condition: domain.Condition{
				QuestionID: domain.QuestionID(fr.When.Question),
				Op:         domain.ConditionOp(fr.When.Op),
				Value:      fr.When.Value,
			}}
			if fr.To != "" {
				target := domain.QuestionID(fr.To)
				route.Target = &target
			}
			t.Routes = append(t.Routes, route)
		}
		if fq.Default != "" {
			d := domain.QuestionID(fq.Default)
			t.DefaultNext = &d
		}
		return t, nil
	}

	if fq.End {
		if fq.Next != "" {
			return domain.TransitionStrategy{}, fmt.Errorf("next and end are mutually exclusive")
		}
		return domain.End(), nil
	}
	if fq.Next != "" {
		return domain.Simple(domain.QuestionID(fq.Next)), nil
	}
	// Omitted transition means end of form, same as an explicit end: true.
	return domain.End(), nil
}

func validKind(k domain.QuestionKind) bool {
	for _, known := range domain.Kinds() {
		if k == known {
			return true
		}
	}
	return false
}
