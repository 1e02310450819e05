package analyze

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/spherical/shopcard/internal/domain"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// stripFences returns the body of the first fenced block, or s unchanged
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// outerObject trims prose around the outermost JSON object
func outerObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// ParseCatalog turns a provider answer into a catalog. Code fences and
// surrounding prose are removed, trailing commas are repaired, and the result
// must satisfy the catalog schema.
func ParseCatalog(answer string) (*domain.Catalog, error) {
	text := outerObject(stripFences(answer))
	if text == "" {
		return nil, domain.ProviderError("empty response", nil)
	}

	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		repaired := trailingCommaRe.ReplaceAllString(text, "$1")
		if err2 := json.Unmarshal([]byte(repaired), &generic); err2 != nil {
			return nil, domain.ProviderError("response is not valid JSON", err)
		}
		text = repaired
	}

	if err := validateCatalog(generic); err != nil {
		return nil, domain.ProviderError("response does not match the catalog schema", err)
	}

	var c domain.Catalog
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, domain.ProviderError(fmt.Sprintf("decode catalog: %v", err), err)
	}
	c.Normalize()
	return &c, nil
}
