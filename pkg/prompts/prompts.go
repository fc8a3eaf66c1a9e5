// Package prompts renders the instruction prompts sent to the reasoning
// oracle: skill discovery, code generation and the corrective retry
// sections appended after a failed attempt.
package prompts

import (
	"embed"
	"io/fs"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

//go:embed templates/*.tmpl
var TemplateFS embed.FS

// Template names.
const (
	DiscoveryTemplate   = "templates/discovery.tmpl"
	GenerateTemplate    = "templates/generate.tmpl"
	RetryFailedTemplate = "templates/retry_failed.tmpl"
	RetryErrorTemplate  = "templates/retry_error.tmpl"
)

// NoneAnswer is the discovery answer meaning no skill applies.
const NoneAnswer = "NONE"

// Renderer renders the embedded prompt templates.
type Renderer struct {
	templates *template.Template
	parseErr  error
}

var defaultRenderer = NewRenderer(TemplateFS)

// NewRenderer parses every *.tmpl file under templates/ in fsys.
func NewRenderer(fsys fs.FS) *Renderer {
	renderer := &Renderer{}
	renderer.templates, renderer.parseErr = parseTemplates(fsys)
	return renderer
}

// DefaultRenderer returns the renderer over the embedded templates.
func DefaultRenderer() *Renderer {
	return defaultRenderer
}

// RenderPrompt executes the named template with data. Surrounding
// whitespace is trimmed so sections can be joined predictably.
func (r *Renderer) RenderPrompt(name string, data any) (string, error) {
	if r.parseErr != nil {
		return "", errors.Wrap(r.parseErr, "failed to initialize templates")
	}

	if r.templates.Lookup(name) == nil {
		return "", errors.Errorf("template %s not found", name)
	}

	var buf strings.Builder
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "failed to execute template %s", name)
	}

	return strings.TrimSpace(buf.String()), nil
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	paths, err := fs.Glob(fsys, "templates/*.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect template paths")
	}

	templates := template.New("templates")
	for _, path := range paths {
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read template file %s", path)
		}
		if _, err := templates.New(path).Parse(string(content)); err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %s", path)
		}
	}

	return templates, nil
}
