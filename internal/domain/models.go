package domain

import (
	"fmt"
	"strings"
	"time"
)

// Language is an output language selectable on the command line
type Language string

const (
	LanguageEnglish Language = "english"
	LanguagePersian Language = "persian"
	LanguageChinese Language = "chinese"
)

// SupportedLanguages lists the languages accepted by --lang
var SupportedLanguages = []Language{LanguageEnglish, LanguagePersian, LanguageChinese}

// ParseLanguage normalizes a language name; the short codes en/fa/zh are accepted too.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "english", "en":
		return LanguageEnglish, nil
	case "persian", "farsi", "fa":
		return LanguagePersian, nil
	case "chinese", "zh":
		return LanguageChinese, nil
	default:
		return "", ValidationError("unsupported language: "+s, nil)
	}
}

// Code returns the BCP 47 code used in the HTML lang attribute
func (l Language) Code() string {
	switch l {
	case LanguagePersian:
		return "fa"
	case LanguageChinese:
		return "zh"
	default:
		return "en"
	}
}

// Direction returns "rtl" for right-to-left scripts and "ltr" otherwise
func (l Language) Direction() string {
	if l == LanguagePersian {
		return DirectionRTL
	}
	return DirectionLTR
}

const (
	DirectionLTR = "ltr"
	DirectionRTL = "rtl"
)

// Document describes the source PDF file being processed
type Document struct {
	FilePath         string            `json:"file_path"`
	SourceFile       string            `json:"source_file"`
	TotalPages       int               `json:"total_pages"`
	DetectedLanguage Language          `json:"detected_language"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Title returns the PDF title metadata, if any
func (d *Document) Title() string {
	if d == nil || d.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(d.Metadata["title"])
}

// PageImage represents a single rendered PDF page
type PageImage struct {
	PageNumber int    `json:"page_number"`
	ImagePath  string `json:"path"` // Path to the rendered JPG in the work directory
	MIMEType   string `json:"mime_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// ImagesDir is the directory, relative to the HTML file, that holds saved page images
const ImagesDir = "images"

// ImageName returns the file name used for the rendered image of a page
func ImageName(page int) string {
	return fmt.Sprintf("page_%03d.jpg", page)
}

// ImageRef returns the HTML-relative reference to a saved page image
func ImageRef(page int) string {
	return ImagesDir + "/" + ImageName(page)
}

// Table is a block of rows detected by layout heuristics
type Table [][]string

// PageLayout summarizes the block structure of a page
type PageLayout struct {
	TextBlocks  int `json:"text_blocks"`
	ImageBlocks int `json:"image_blocks"`
}

// PageContent is the extracted unit for one page. It is produced by the
// extractor and consumed once by the analyzer.
type PageContent struct {
	PageNumber int        `json:"page_number"`
	Text       string     `json:"text"`
	Tables     []Table    `json:"tables"`
	Image      *PageImage `json:"image,omitempty"`
	Layout     PageLayout `json:"layout"`
}

// HasText reports whether the page carries any extractable text
func (p PageContent) HasText() bool {
	return strings.TrimSpace(p.Text) != ""
}

// Extraction holds the document and exactly one PageContent per page
type Extraction struct {
	Document Document      `json:"document"`
	Pages    []PageContent `json:"pages"`
}

// Images returns the rendered images of the first maxPages pages, capped at maxImages
func (e *Extraction) Images(maxPages, maxImages int) []PageImage {
	var out []PageImage
	for i, p := range e.Pages {
		if i >= maxPages || len(out) >= maxImages {
			break
		}
		if p.Image != nil && p.Image.ImagePath != "" {
			out = append(out, *p.Image)
		}
	}
	return out
}

// AllTables returns every detected table tagged with its page number
func (e *Extraction) AllTables() []PageTable {
	var out []PageTable
	for _, p := range e.Pages {
		for _, t := range p.Tables {
			out = append(out, PageTable{Page: p.PageNumber, Rows: t})
		}
	}
	return out
}

// PageTable is a table together with the page it was found on
type PageTable struct {
	Page int
	Rows Table
}

// Company holds the catalog publisher's contact details
type Company struct {
	Name    string `json:"name,omitempty"`
	Website string `json:"website,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Pricing is the price block of a product
type Pricing struct {
	Price    FlexString `json:"price,omitempty"`
	Currency string     `json:"currency,omitempty"`
	Note     string     `json:"note,omitempty"`
}

// Product is a structured product record
type Product struct {
	Name           string         `json:"name"`
	Model          FlexString     `json:"model,omitempty"`
	Tagline        string         `json:"tagline,omitempty"`
	Description    string         `json:"description,omitempty"`
	Features       []string       `json:"features,omitempty"`
	Specifications Specifications `json:"specifications,omitempty"`
	Applications   []string       `json:"applications,omitempty"`
	Pricing        *Pricing       `json:"pricing,omitempty"`
	Images         []string       `json:"images,omitempty"`
	ImagesCount    int            `json:"images_count,omitempty"`
}

// SpecCount returns the number of specification entries across all groups
func (p Product) SpecCount() int {
	n := 0
	for _, g := range p.Specifications {
		n += len(g.Items)
	}
	return n
}

// Analysis modes recorded in the catalog metadata
const (
	ModeVision    = "vision"
	ModeText      = "text"
	ModeHeuristic = "heuristic"
)

// ConversionMeta records where a catalog came from
type ConversionMeta struct {
	RunID            string    `json:"run_id"`
	SourceFile       string    `json:"source_file"`
	Pages            int       `json:"pages"`
	DetectedLanguage Language  `json:"detected_language,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	Mode             string    `json:"mode"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Catalog is the catalog result: the unit persisted to JSON and rendered to HTML
type Catalog struct {
	ProductFamily string          `json:"product_family"`
	Category      string          `json:"category"`
	Company       *Company        `json:"company,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	Products      []Product       `json:"products"`
	Language      string          `json:"language,omitempty"`
	Direction     string          `json:"direction,omitempty"`
	Meta          *ConversionMeta `json:"meta,omitempty"`
}

// Normalize fills defaults the renderer relies on
func (c *Catalog) Normalize() {
	c.ProductFamily = strings.TrimSpace(c.ProductFamily)
	if c.ProductFamily == "" {
		c.ProductFamily = "Product Catalog"
	}
	c.Category = strings.TrimSpace(c.Category)
	if c.Category == "" {
		c.Category = "Products"
	}
	if c.Products == nil {
		c.Products = []Product{}
	}
	for i := range c.Products {
		p := &c.Products[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			p.Name = strings.TrimSpace(string(p.Model))
		}
		if p.Name == "" {
			p.Name = "Product"
		}
	}
}

// SetLanguage records the output language and its layout direction
func (c *Catalog) SetLanguage(lang Language) {
	c.Language = lang.Code()
	c.Direction = lang.Direction()
}

// IsRTL reports whether the catalog renders right-to-left
func (c *Catalog) IsRTL() bool {
	return c.Direction == DirectionRTL
}

// EventType represents the type of stream event
type EventType string

const (
	EventStart        EventType = "start"
	EventPageComplete EventType = "page_complete"
	EventAnalyzing    EventType = "analyzing"
	EventTranslating  EventType = "translating"
	EventRendering    EventType = "rendering"
	EventWarning      EventType = "warning"
	EventError        EventType = "error"
	EventComplete     EventType = "complete"
)

// StreamEvent represents an event emitted during a conversion
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
