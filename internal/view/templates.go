// Package view renders the embedded HTML templates.
package view

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/smartexpense/smartexpense/internal/reports/svg"
	"github.com/smartexpense/smartexpense/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// Options tunes number formatting.
type Options struct {
	Language       language.Tag
	CurrencySymbol string
}

// NewEngine parses the embedded templates.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Language == language.Und {
		opts.Language = language.MustParse("en-IN")
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "₹"
	}
	printer := message.NewPrinter(opts.Language)

	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"money": func(v float64) string {
			return opts.CurrencySymbol + printer.Sprintf("%.2f", v)
		},
		"share": func(part, total float64) string {
			if total == 0 {
				return "0.0%"
			}
			return printer.Sprintf("%.1f%%", part/total*100)
		},
		"color": svg.ColorAt,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/reports/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Execute renders the named template into w.
func (e *Engine) Execute(w io.Writer, name string, data any) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}
