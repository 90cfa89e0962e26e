package common

import (
	"html/template"
	"strings"
	"time"
)

// TemplateFuncs must be set on the router before templates are loaded.
func TemplateFuncs(siteURL string) template.FuncMap {
	domain := strings.TrimSuffix(siteURL, "/")
	return template.FuncMap{
		"now": func() time.Time {
			return time.Now()
		},
		"domain": func() string {
			return domain
		},
	}
}
