// Package web holds the server-rendered inspection screens: embedded
// templates, their helper functions and the static assets they load.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	inspectionapp "github.com/railinspect/backend/internal/application/inspection"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Template names rendered by the page handlers
const (
	TemplateScan            = "scan.tmpl"
	TemplateDashboard       = "dashboard.tmpl"
	TemplateUpdateCondition = "update_condition.tmpl"
	TemplateHistory         = "history.tmpl"
)

// Page is the data every screen receives
type Page struct {
	Title     string
	Active    string
	Errors    []string
	Notices   []string
	SessionID string
	Resolved  *inspectionapp.ResolvedProductResponse
	Data      any
}

// ScanData backs the scan screen
type ScanData struct {
	ProductID         string
	CameraUnavailable bool
	Location          string
}

// ConditionFormData backs the condition update screen
type ConditionFormData struct {
	Form             inspectionapp.ConditionUpdateRequest
	FieldErrors      map[string]string
	Conditions       []string
	Statuses         []string
	MaintenanceTypes []string
	Priorities       []string
	CommonIssues     []string
	SubmitDelay      string
}

// Templates parses the embedded screens with FuncMap
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.tmpl")
}

// MustTemplates is Templates for program start-up
func MustTemplates() *template.Template {
	return template.Must(Templates())
}

// StaticFS serves the embedded scripts and stylesheet
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
