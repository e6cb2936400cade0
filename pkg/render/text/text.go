// Package text renders a plain text summary of a form's field state with
// pongo2 templates.
package text

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-cardform/pkg/field"
	"github.com/goliatone/go-cardform/pkg/form"
	"github.com/goliatone/go-cardform/pkg/model"
)

// DefaultTemplate is the template rendered when none is selected.
const DefaultTemplate = "summary.tpl"

//go:embed templates/*.tpl
var embedded embed.FS

// Field is the template view of one element.
type Field struct {
	ID       string
	Label    string
	Value    string
	State    string
	Error    string
	Required bool
}

// Summary is the template context.
type Summary struct {
	Product    string
	CoBrands   []string
	Fields     []Field
	RememberMe bool
	Expired    bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFS loads templates from fsys instead of the embedded set.
func WithFS(fsys fs.FS) Option {
	return func(r *Renderer) {
		if fsys != nil {
			r.fsys = fsys
		}
	}
}

// WithTemplate selects the template rendered by Render.
func WithTemplate(name string) Option {
	return func(r *Renderer) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			r.name = trimmed
		}
	}
}

// Renderer renders summaries. It is safe for concurrent use.
type Renderer struct {
	mu        sync.Mutex
	fsys      fs.FS
	name      string
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
}

// New builds a renderer over the embedded templates unless WithFS is given.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		name:      DefaultTemplate,
		templates: make(map[string]*pongo2.Template),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.fsys == nil {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, fmt.Errorf("text: embedded templates: %w", err)
		}
		r.fsys = sub
	}
	r.set = pongo2.NewSet("cardform-text", pongo2.NewFSLoader(r.fsys))
	return r, nil
}

// Render writes the summary through the selected template.
func (r *Renderer) Render(w io.Writer, summary Summary) error {
	if r == nil || r.set == nil {
		return errors.New("text: renderer is nil")
	}
	tmpl, err := r.template(r.name)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(pongo2.Context{
		"product":    summary.Product,
		"coBrands":   summary.CoBrands,
		"fields":     summary.Fields,
		"rememberMe": summary.RememberMe,
		"expired":    summary.Expired,
	}, &buf); err != nil {
		return fmt.Errorf("text: execute template %q: %w", r.name, err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (r *Renderer) template(name string) (*pongo2.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.templates[name]; ok {
		return tmpl, nil
	}
	tmpl, err := r.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("text: load template %q: %w", name, err)
	}
	r.templates[name] = tmpl
	return tmpl, nil
}

// Snapshot summarises the current state of f.
func Snapshot(f *form.Form) Summary {
	summary := Summarize(f.Fields(), f.Product(), f.CoBrands())
	summary.RememberMe = f.ShowRememberMe()
	summary.Expired = f.SessionExpired()
	return summary
}

// Summarize builds a summary from element snapshots. Obfuscated values are
// never rendered.
func Summarize(elements []*field.Element, product *model.NetworkProduct, coBrands []model.NetworkProduct) Summary {
	var summary Summary
	if product != nil {
		summary.Product = productName(*product)
	}
	for _, cb := range coBrands {
		summary.CoBrands = append(summary.CoBrands, productName(cb))
	}
	for _, el := range elements {
		if el == nil {
			continue
		}
		def := el.Definition
		view := Field{
			ID:       def.ID,
			Label:    def.Label,
			Value:    el.FormattedValue,
			State:    stateOf(el),
			Error:    el.ValidityError(),
			Required: def.Required,
		}
		if view.Label == "" {
			view.Label = def.ID
		}
		if def.Obfuscate && view.Value != "" {
			view.Value = strings.Repeat("*", len([]rune(view.Value)))
		}
		summary.Fields = append(summary.Fields, view)
	}
	return summary
}

func stateOf(el *field.Element) string {
	switch {
	case el.Loading:
		return "loading"
	case el.Disabled:
		return "disabled"
	case el.Readonly:
		return "readonly"
	default:
		return "editable"
	}
}

func productName(p model.NetworkProduct) string {
	if p.Label != "" {
		return p.Label
	}
	return p.ID
}
