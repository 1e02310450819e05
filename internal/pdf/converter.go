package pdf

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

// Options controls page rendering
type Options struct {
	DPI       float64 // render resolution; 72 is 1x
	Quality   int     // JPEG quality 1..100
	MaxFileMB int64   // size above which a warning is logged
}

// DefaultOptions renders at 2x zoom
func DefaultOptions() Options {
	return Options{DPI: 144, Quality: 85, MaxFileMB: 100}
}

// Converter extracts text, tables, metadata and page images from a PDF.
// go-fitz renders pages; ledongthuc/pdf supplies positioned text for tables;
// pdfcpu validates structure before anything else is opened.
type Converter struct {
	opts      Options
	validator *Validator
	log       *observability.Logger

	mu      sync.Mutex
	tempDir string
}

// NewConverter creates a new PDF converter instance
func NewConverter(opts Options, log *observability.Logger) *Converter {
	if log == nil {
		log = observability.Nop()
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultOptions().DPI
	}
	return &Converter{
		opts:      opts,
		validator: NewValidator(opts.MaxFileMB, log),
		log:       log.WithOperation("extract"),
	}
}

var _ domain.Extractor = (*Converter)(nil)

// Extract validates pdfPath and produces exactly one PageContent per page.
// Rendered images live in a temporary work directory until Cleanup.
func (c *Converter) Extract(ctx context.Context, pdfPath string, onPage func(done, total int)) (*domain.Extraction, error) {
	if err := c.validator.ValidatePDFPath(pdfPath); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateQuality(c.opts.Quality); err != nil {
		return nil, err
	}
	structure, err := c.validator.ValidateStructure(pdfPath)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.ValidationError("failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.ValidationError("PDF has no pages", nil)
	}
	if pageCount != structure.PageCount {
		c.log.Warn().
			Int("fitz_pages", pageCount).
			Int("pdfcpu_pages", structure.PageCount).
			Msg("page count mismatch between parsers")
	}

	tempDir, err := c.workDir()
	if err != nil {
		return nil, domain.ExtractionError("failed to create temp directory", err)
	}

	rows, err := openRowReader(pdfPath)
	if err != nil {
		c.log.Warn().Err(err).Msg("positioned text unavailable, tables will not be detected")
		rows = nil
	}
	defer rows.Close()

	ext := &domain.Extraction{
		Document: domain.Document{
			FilePath:   pdfPath,
			SourceFile: filepath.Base(pdfPath),
			TotalPages: pageCount,
			Metadata:   metadata(doc.Metadata()),
		},
		Pages: make([]domain.PageContent, 0, pageCount),
	}

	var allText strings.Builder
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.extractPage(doc, rows, tempDir, pageNum)
		if err != nil {
			return nil, err
		}
		page.Layout.ImageBlocks = structure.ImageBlocks[page.PageNumber]
		ext.Pages = append(ext.Pages, page)

		allText.WriteString(page.Text)
		allText.WriteByte('\n')

		if onPage != nil {
			onPage(pageNum+1, pageCount)
		}
	}

	ext.Document.DetectedLanguage = DetectLanguage(allText.String())

	c.log.Debug().
		Str("file", ext.Document.SourceFile).
		Int("pages", pageCount).
		Str("language", string(ext.Document.DetectedLanguage)).
		Msg("extraction complete")

	return ext, nil
}

func (c *Converter) extractPage(doc *fitz.Document, rows *rowReader, dir string, pageNum int) (domain.PageContent, error) {
	page := domain.PageContent{PageNumber: pageNum + 1}

	fitzText, err := doc.Text(pageNum)
	if err != nil {
		c.log.Debug().Err(err).Int("page", page.PageNumber).Msg("no text layer")
	}

	var layout []layoutRow
	if rows != nil {
		layout, err = rows.Rows(page.PageNumber)
		if err != nil {
			c.log.Debug().Err(err).Int("page", page.PageNumber).Msg("row extraction failed")
		}
	}

	page.Text = longer(strings.TrimSpace(fitzText), strings.TrimSpace(rowsText(layout)))
	page.Tables = detectTables(layout)
	page.Layout.TextBlocks = len(layout)

	img, err := doc.ImageDPI(pageNum, c.opts.DPI)
	if err != nil {
		return page, domain.ExtractionError(fmt.Sprintf("failed to render page %d", page.PageNumber), err)
	}

	outputPath := filepath.Join(dir, domain.ImageName(page.PageNumber))
	out, err := os.Create(outputPath)
	if err != nil {
		return page, domain.ExtractionError(fmt.Sprintf("failed to create image for page %d", page.PageNumber), err)
	}
	err = jpeg.Encode(out, img, &jpeg.Options{Quality: c.opts.Quality})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return page, domain.ExtractionError(fmt.Sprintf("failed to encode page %d as JPG", page.PageNumber), err)
	}

	bounds := img.Bounds()
	page.Image = &domain.PageImage{
		PageNumber: page.PageNumber,
		ImagePath:  outputPath,
		MIMEType:   "image/jpeg",
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
	}
	return page, nil
}

func (c *Converter) workDir() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tempDir != "" {
		return c.tempDir, nil
	}
	dir, err := os.MkdirTemp("", "shopcard-*")
	if err != nil {
		return "", err
	}
	c.tempDir = dir
	return dir, nil
}

// Cleanup removes the work directory and every rendered page in it
func (c *Converter) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(c.tempDir)
	c.tempDir = ""
	if err != nil {
		return fmt.Errorf("cleanup work directory: %w", err)
	}
	return nil
}

// metadata keeps the non-empty document info fields under stable lowercase keys
func metadata(raw map[string]string) map[string]string {
	keys := map[string]string{
		"title":        "title",
		"author":       "author",
		"subject":      "subject",
		"keywords":     "keywords",
		"creator":      "creator",
		"producer":     "producer",
		"creationDate": "creation_date",
		"modDate":      "modification_date",
	}
	out := make(map[string]string)
	for from, to := range keys {
		if v := strings.TrimSpace(raw[from]); v != "" {
			out[to] = v
		}
	}
	return out
}

func longer(a, b string) string {
	if len([]rune(b)) > len([]rune(a)) {
		return b
	}
	return a
}
