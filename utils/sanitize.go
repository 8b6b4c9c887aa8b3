package utils

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans admin supplied HTML (group descriptions) for rendering.
func Sanitize(input string) template.HTML {
	return template.HTML(ugcPolicy.Sanitize(input))
}

// StripTags removes all markup, used for plain-text previews and titles.
func StripTags(input string) string {
	return strictPolicy.Sanitize(input)
}
