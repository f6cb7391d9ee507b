// Package web holds the HTML pages served by the HTTP controller.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

type Page string

const (
	PageIndex    Page = "index.html"
	PageLog      Page = "log.html"
	PageMonitor  Page = "monitor.html"
	PageNotFound Page = "404.html"
	PageError    Page = "500.html"
)

// PageData marks the active navigation entry.
type PageData struct {
	ApplicationName string
	LogPage         string
	MonitorPage     string
}

type Pages struct {
	tmpl *template.Template
}

func NewPages() (*Pages, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Pages{tmpl: tmpl}, nil
}

func (p *Pages) Render(w io.Writer, page Page, data PageData) error {
	return p.tmpl.ExecuteTemplate(w, string(page), data)
}
