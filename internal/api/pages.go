package api

import (
	"embed"
	"html/template"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type indexPage struct {
	Current *watcher.Observation
	Change  *watcher.DatedChange
}
