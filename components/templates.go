package components

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Banner is an inline status message.
type Banner struct {
	Text  string
	Class string
}

// Action is a POST trigger in the dashboard header.
type Action struct {
	Path    string
	Label   string
	Pending bool
	Result  *Banner
}

type DashboardPage struct {
	LastUpdated    string
	Actions        []Action
	Filters        FilterControlsView
	Loading        bool
	Fetching       bool
	Error          string
	Cards          []SectorCard
	Rows           []SectorRow
	RefreshSeconds int
	RefreshURL     string
}

type SectorPage struct {
	SectorID       string
	Href           string
	Title          string
	Ticker         string
	Loading        bool
	Fetching       bool
	Error          string
	Header         *Header
	Narrative      *NarrativeView
	TimeWindows    []Option
	Tabs           []Tab
	Signals        []SignalCard
	RefreshSeconds int
	RefreshURL     string
}

type ErrorPage struct {
	Status int
	Error  string
}

// Templates parses the embedded page templates. Pages are looked up by file
// name, e.g. "dashboard.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"repeat": func(n int) []int { return make([]int, n) },
	}).ParseFS(templateFS, "templates/*.html")
}

// MustTemplates is Templates for package initialisation.
func MustTemplates() *template.Template {
	return template.Must(Templates())
}
