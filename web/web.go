// Package web 提供内嵌的页面模板
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates 解析全部页面模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"isDark": func(theme string) bool { return theme != "light" },
	}).ParseFS(templateFS, "templates/*.html")
}
