package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/memberdash/internal/shared"
	"github.com/odyssey-erp/memberdash/web"
)

// AppName is shown in the navbar and page titles.
const AppName = "TimeTracker"

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *shared.Identity
	// Refresh, when positive, adds a meta refresh of that many seconds.
	Refresh int
	Data    any
}

var (
	printer   = message.NewPrinter(language.English)
	titleCase = cases.Title(language.English)
	lowerCase = cases.Lower(language.English)
)

// FuncMap returns the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"appName": func() string { return AppName },
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"formatCount": FormatCount,
		"statusLabel": StatusLabel,
		"statusClass": StatusClass,
		"lower":       func(s string) string { return lowerCase.String(s) },
		"initials":    Initials,
		"navClass": func(current, href string) string {
			if current == href {
				return "nav-link active"
			}
			return "nav-link"
		},
	}
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(FuncMap()).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData and status 200.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus buffers the template so a failed execution never leaves a
// half-written page behind a success status.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// StatusLabel renders ACTIVE as "Active".
func StatusLabel(status string) string {
	if status == "" {
		return ""
	}
	return titleCase.String(lowerCase.String(status))
}

// StatusClass picks the badge colour for a member status.
func StatusClass(status string) string {
	switch strings.ToUpper(status) {
	case "ACTIVE":
		return "badge badge-active"
	case "PENDING":
		return "badge badge-pending"
	default:
		return "badge badge-inactive"
	}
}

// Initials is the avatar fallback when a member has no photo.
func Initials(name string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		for _, r := range part {
			out = append(out, r)
			break
		}
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}
