package render

import (
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func ugcPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
	})
	return policy
}

// sanitizeHTML cleans provider text for direct inclusion in the page.
// Line breaks are kept as <br> elements.
func sanitizeHTML(s string) template.HTML {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	clean := ugcPolicy().Sanitize(s)
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(clean, "\n", "<br>"))
}
