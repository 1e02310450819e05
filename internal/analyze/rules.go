package analyze

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spherical/shopcard/internal/domain"
)

const (
	maxHeadingRunes     = 80
	maxCategoryRunes    = 40
	maxKeyRunes         = 40
	minDescriptionRunes = 60
	maxNameRunes        = 120
)

var (
	modelRe    = regexp.MustCompile(`\b[A-Z]{1,6}-?\d{2,6}[A-Z0-9]*(?:[-/][A-Z0-9]+)*\b`)
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	websiteRe  = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s,;()<>]+`)
	phoneRe    = regexp.MustCompile(`\+?\d[\d \t().-]{7,}\d`)
	bulletRe   = regexp.MustCompile(`^\s*(?:[-*•●▪◦–]|\d{1,2}[.)])\s+(.+)$`)
	keyValueRe = regexp.MustCompile(`^\s*([^:：]{1,60})[:：]\s*(.*)$`)
	currencyRe = regexp.MustCompile(`(?i)(\$|€|£|¥|USD|EUR|GBP|CNY|IRR)\s?(\d[\d,]*(?:\.\d+)?)`)
	modelKeyRe = regexp.MustCompile(`(?i)^(model|model no\.?|model number|sku|part number|part no\.?)$`)
)

var currencyCodes = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "CNY",
}

// ruleState tracks the product and specification category lines belong to
type ruleState struct {
	catalog  *domain.Catalog
	current  int // index into catalog.Products, -1 before the first product
	category string
	pages    []map[int]bool
	byModel  map[string]int
	general  domain.Product
}

// Heuristic builds a catalog from the extraction with local rules only
func Heuristic(ext *domain.Extraction) *domain.Catalog {
	st := &ruleState{
		catalog: &domain.Catalog{Category: "Products"},
		current: -1,
		byModel: make(map[string]int),
	}
	st.catalog.ProductFamily = familyName(ext)
	st.catalog.Company = companyInfo(combineText(ext))

	for _, page := range ext.Pages {
		for _, line := range strings.Split(page.Text, "\n") {
			st.line(page.PageNumber, strings.TrimSpace(line))
		}
		for _, t := range page.Tables {
			st.table(page.PageNumber, t)
		}
	}

	if len(st.catalog.Products) == 0 {
		p := st.general
		p.Name = st.catalog.ProductFamily
		st.catalog.Products = []domain.Product{p}
		all := make(map[int]bool, len(ext.Pages))
		for _, page := range ext.Pages {
			all[page.PageNumber] = true
		}
		st.pages = []map[int]bool{all}
	}
	st.attachImages(ext)
	st.catalog.Normalize()
	return st.catalog
}

func familyName(ext *domain.Extraction) string {
	if t := ext.Document.Title(); t != "" {
		return t
	}
	for _, page := range ext.Pages {
		for _, line := range strings.Split(page.Text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return clip(line, maxNameRunes)
			}
		}
	}
	return ""
}

func companyInfo(text string) *domain.Company {
	c := &domain.Company{
		Email:   emailRe.FindString(text),
		Website: strings.TrimRight(websiteRe.FindString(text), "."),
		Phone:   strings.TrimSpace(phoneRe.FindString(text)),
	}
	if c.Email != "" && c.Website == "" {
		c.Website = "www." + c.Email[strings.IndexByte(c.Email, '@')+1:]
	}
	if *c == (domain.Company{}) {
		return nil
	}
	return c
}

// product returns the product lines are currently attributed to
func (st *ruleState) product(page int) *domain.Product {
	if st.current < 0 {
		return &st.general
	}
	st.pages[st.current][page] = true
	return &st.catalog.Products[st.current]
}

func (st *ruleState) startProduct(page int, name, model string) {
	if i, ok := st.byModel[model]; ok {
		st.current = i
		st.pages[i][page] = true
		return
	}
	st.catalog.Products = append(st.catalog.Products, domain.Product{
		Name:  clip(name, maxNameRunes),
		Model: domain.FlexString(model),
	})
	st.pages = append(st.pages, map[int]bool{page: true})
	st.current = len(st.catalog.Products) - 1
	st.byModel[model] = st.current
	st.category = ""
}

func (st *ruleState) line(page int, line string) {
	if line == "" {
		return
	}

	if m := currencyRe.FindStringSubmatch(line); m != nil {
		p := st.product(page)
		if p.Pricing == nil {
			p.Pricing = &domain.Pricing{Price: domain.FlexString(m[2]), Currency: currencyCode(m[1])}
		}
		return
	}

	if m := bulletRe.FindStringSubmatch(line); m != nil {
		p := st.product(page)
		p.Features = appendUnique(p.Features, strings.TrimSpace(m[1]))
		return
	}

	if m := keyValueRe.FindStringSubmatch(line); m != nil && utf8.RuneCountInString(strings.TrimSpace(m[1])) <= maxKeyRunes {
		key, value := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if value == "" {
			st.category = key
			return
		}
		if modelKeyRe.MatchString(key) {
			id := modelRe.FindString(value)
			if id == "" {
				id = value
			}
			if st.current >= 0 && st.catalog.Products[st.current].Model == "" {
				st.catalog.Products[st.current].Model = domain.FlexString(id)
				st.byModel[id] = st.current
			} else {
				st.startProduct(page, id, id)
			}
			return
		}
		st.product(page).Specifications.Add(st.category, key, value)
		return
	}

	runes := utf8.RuneCountInString(line)
	if runes <= maxHeadingRunes {
		if id := modelRe.FindString(line); id != "" {
			st.startProduct(page, line, id)
			return
		}
	}
	if runes <= maxCategoryRunes && isHeading(line) && st.current >= 0 {
		st.category = strings.TrimSpace(line)
		return
	}
	if runes >= minDescriptionRunes {
		p := st.product(page)
		if p.Description == "" {
			p.Description = line
		}
	}
}

// table turns two-column rows into specifications of the current product
func (st *ruleState) table(page int, t domain.Table) {
	p := st.product(page)
	for _, row := range t {
		if len(row) != 2 {
			continue
		}
		p.Specifications.Add(st.category, row[0], row[1])
	}
}

func (st *ruleState) attachImages(ext *domain.Extraction) {
	rendered := make(map[int]bool, len(ext.Pages))
	for _, page := range ext.Pages {
		if page.Image != nil && page.Image.ImagePath != "" {
			rendered[page.PageNumber] = true
		}
	}
	for i := range st.catalog.Products {
		p := &st.catalog.Products[i]
		for _, page := range ext.Pages {
			if st.pages[i][page.PageNumber] && rendered[page.PageNumber] {
				p.Images = append(p.Images, domain.ImageRef(page.PageNumber))
			}
		}
		p.ImagesCount = len(p.Images)
	}
}

// isHeading reports whether line looks like a short section title
func isHeading(line string) bool {
	letters := 0
	for _, r := range line {
		switch {
		case unicode.IsDigit(r):
			return false
		case unicode.IsLetter(r):
			letters++
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letters >= 3
}

func currencyCode(sym string) string {
	if code, ok := currencyCodes[sym]; ok {
		return code
	}
	return strings.ToUpper(sym)
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func clip(s string, n int) string {
	return strings.TrimSpace(truncate(s, n))
}
