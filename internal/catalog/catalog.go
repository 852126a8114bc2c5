// Package catalog holds the communication templates available to render.
package catalog

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/pkg/ctxlog"
	"github.com/bissquit/incident-comms/internal/store"
)

//go:embed templates/*
var builtinFS embed.FS

const importedKey = "catalog/imported"

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Audience domain.Audience
	Severity string
	Category string
}

func (f Filter) matches(t domain.Template) bool {
	if f.Audience != "" && t.EffectiveAudience() != domain.ParseAudience(string(f.Audience)) {
		return false
	}
	if f.Severity != "" && !t.Severity.Contains(f.Severity) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}
	return true
}

// Catalog is an ordered template collection. Templates sharing an id are all
// kept; lookups return the one added last.
type Catalog struct {
	kv       store.KV
	validate *validator.Validate

	mu        sync.RWMutex
	templates []domain.Template
	imported  []domain.Template
}

// New creates an empty catalog. Templates added through Add and Import are
// persisted to kv when it is not nil.
func New(kv store.KV) *Catalog {
	return &Catalog{
		kv:       kv,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		return domain.Audience(fl.Field().String()).IsValid()
	})
	return v
}

// LoadBuiltin adds the embedded template packs. The core pack is added as
// is; later packs skip ids that are already present.
func (c *Catalog) LoadBuiltin(ctx context.Context) error {
	entries, err := fs.ReadDir(builtinFS, "templates")
	if err != nil {
		return fmt.Errorf("read builtin templates: %w", err)
	}

	for i, entry := range entries {
		name := path.Join("templates", entry.Name())
		data, err := builtinFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		templates, err := c.parse(name, data, DetectFormat(name, data))
		if err != nil {
			return err
		}

		c.mu.Lock()
		if i > 0 {
			templates = c.withoutExisting(templates)
		}
		c.templates = append(c.templates, templates...)
		c.mu.Unlock()
		recordTemplates(c.Len())

		ctxlog.FromContext(ctx).Debug("builtin templates loaded", "pack", name, "count", len(templates))
	}
	return nil
}

// LoadImported restores templates persisted by earlier Add and Import calls.
func (c *Catalog) LoadImported(ctx context.Context) error {
	if c.kv == nil {
		return nil
	}

	var templates []domain.Template
	if err := store.GetJSON(ctx, c.kv, importedKey, &templates); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load imported templates: %w", err)
	}

	c.mu.Lock()
	c.templates = append(c.templates, templates...)
	c.imported = append(c.imported, templates...)
	c.mu.Unlock()
	recordTemplates(c.Len())
	return nil
}

// Add validates and appends one template.
func (c *Catalog) Add(ctx context.Context, t domain.Template) error {
	t.Audience = domain.ParseAudience(string(t.Audience))
	if err := c.validate.Struct(t); err != nil {
		return &domain.ImportError{Index: -1, Err: fmt.Errorf("template %q: %w", t.ID, err)}
	}

	c.mu.Lock()
	c.templates = append(c.templates, t)
	c.imported = append(c.imported, t)
	c.persist(ctx)
	c.mu.Unlock()
	recordTemplates(c.Len())
	return nil
}

// Import decodes data and appends every template in it. Either all of them
// are added or, on any decode or validation failure, none; the error is a
// *domain.ImportError.
func (c *Catalog) Import(ctx context.Context, source string, data []byte, format Format) (int, error) {
	return c.importTemplates(ctx, source, data, format, false)
}

// ImportDeduplicated is Import but skips templates whose id is already in
// the catalog, and duplicates within data after the first.
func (c *Catalog) ImportDeduplicated(ctx context.Context, source string, data []byte, format Format) (int, error) {
	return c.importTemplates(ctx, source, data, format, true)
}

func (c *Catalog) importTemplates(ctx context.Context, source string, data []byte, format Format, dedupe bool) (int, error) {
	if format == FormatAuto {
		format = DetectFormat(source, data)
	}
	templates, err := c.parse(source, data, format)
	if err != nil {
		recordImport("failed")
		return 0, err
	}

	c.mu.Lock()
	if dedupe {
		templates = c.withoutExisting(templates)
	}
	c.templates = append(c.templates, templates...)
	c.imported = append(c.imported, templates...)
	if len(templates) > 0 {
		c.persist(ctx)
	}
	c.mu.Unlock()

	recordImport("success")
	recordTemplates(c.Len())
	ctxlog.FromContext(ctx).Info("templates imported",
		"source", source,
		"count", len(templates),
		"deduplicated", dedupe,
	)
	return len(templates), nil
}

// parse decodes and validates every template in data.
func (c *Catalog) parse(source string, data []byte, format Format) ([]domain.Template, error) {
	templates, err := Decode(data, format)
	if err != nil {
		return nil, &domain.ImportError{Source: source, Index: -1, Err: err}
	}
	for i, t := range templates {
		if err := c.validate.Struct(t); err != nil {
			return nil, &domain.ImportError{Source: source, Index: i, Err: fmt.Errorf("template %q: %w", t.ID, err)}
		}
	}
	return templates, nil
}

// withoutExisting drops templates whose id is present. Callers hold c.mu.
func (c *Catalog) withoutExisting(templates []domain.Template) []domain.Template {
	seen := make(map[string]struct{}, len(c.templates))
	for _, t := range c.templates {
		seen[t.ID] = struct{}{}
	}
	out := templates[:0:0]
	for _, t := range templates {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Get returns the template with id, the most recently added if several
// share it.
func (c *Catalog) Get(id string) (domain.Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.templates) - 1; i >= 0; i-- {
		if c.templates[i].ID == id {
			return c.templates[i], nil
		}
	}
	return domain.Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// List returns matching templates in insertion order.
func (c *Catalog) List(filter Filter) []domain.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Template, 0, len(c.templates))
	for _, t := range c.templates {
		if filter.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct non-empty categories, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, t := range c.templates {
		if t.Category != "" && !slices.Contains(out, t.Category) {
			out = append(out, t.Category)
		}
	}
	slices.Sort(out)
	return out
}

// Remove deletes every template with id and returns how many were removed.
func (c *Catalog) Remove(ctx context.Context, id string) (int, error) {
	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		recordTemplates(c.Len())
	}()

	before := len(c.templates)
	c.templates = slices.DeleteFunc(c.templates, func(t domain.Template) bool { return t.ID == id })
	removed := before - len(c.templates)
	if removed == 0 {
		return 0, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}

	importedBefore := len(c.imported)
	c.imported = slices.DeleteFunc(c.imported, func(t domain.Template) bool { return t.ID == id })
	if len(c.imported) != importedBefore {
		c.persist(ctx)
	}
	return removed, nil
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// persist writes imported templates to the store. Failures are logged.
// Callers hold c.mu.
func (c *Catalog) persist(ctx context.Context) {
	if c.kv == nil {
		return
	}
	if err := store.PutJSON(ctx, c.kv, importedKey, c.imported); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to persist imported templates", "error", err)
	}
}
