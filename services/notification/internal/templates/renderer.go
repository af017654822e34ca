package templates

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

const suffix = ".tmpl"

// Renderer рендерит шаблоны уведомлений.
// Имя шаблона: <event_type>.<part>.tmpl, например order.placed.whatsapp.tmpl
type Renderer struct {
	logger    *zap.Logger
	templates *template.Template
}

// NewRenderer загружает все *.tmpl из каталога
func NewRenderer(logger *zap.Logger, templatesDir string) (*Renderer, error) {
	return NewRendererFS(logger, os.DirFS(templatesDir))
}

// NewRendererFS загружает все *.tmpl из fsys
func NewRendererFS(logger *zap.Logger, fsys fs.FS) (*Renderer, error) {
	tmpl, err := template.New("notifications").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"upper": strings.ToUpper,
			"title": title,
		}).
		ParseFS(fsys, "*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r := &Renderer{
		logger:    logger,
		templates: tmpl,
	}
	logger.Info("notification templates loaded", zap.Strings("templates", r.Names()))
	return r, nil
}

// Has есть ли шаблон с таким именем (без суффикса)
func (r *Renderer) Has(name string) bool {
	return r.templates.Lookup(name+suffix) != nil
}

// Names имена загруженных шаблонов без суффикса
func (r *Renderer) Names() []string {
	var names []string
	for _, t := range r.templates.Templates() {
		if strings.HasSuffix(t.Name(), suffix) {
			names = append(names, strings.TrimSuffix(t.Name(), suffix))
		}
	}
	return names
}

// Render рендерит шаблон name (без суффикса) с данными data
func (r *Renderer) Render(name string, data any) (string, error) {
	t := r.templates.Lookup(name + suffix)
	if t == nil {
		return "", fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// title первая буква в верхнем регистре: "processing" → "Processing"
func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
