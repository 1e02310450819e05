package render

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

//go:embed templates/card.html.tmpl
var templateFS embed.FS

var cardTemplate = template.Must(template.ParseFS(templateFS, "templates/card.html.tmpl"))

// Generator implements domain.Generator
type Generator struct {
	tmpl *template.Template
	md   *converter.Converter
	log  *observability.Logger
}

// NewGenerator creates a generator using the embedded shopping card template
func NewGenerator(log *observability.Logger) *Generator {
	if log == nil {
		log = observability.Nop()
	}
	return &Generator{
		tmpl: cardTemplate,
		md:   newMarkdownConverter(),
		log:  log.WithOperation("render"),
	}
}

// pageData is the template input
type pageData struct {
	Lang     string
	RTL      bool
	Font     template.CSS
	Start    string
	End      string
	Labels   labels
	Catalog  *domain.Catalog
	Summary  template.HTML
	Products []productView
}

type productView struct {
	Name         string
	Model        string
	Tagline      string
	Description  template.HTML
	Features     []string
	Specs        domain.Specifications
	Applications []string
	Images       []string
	Price        string
	Currency     string
	PriceNote    string
}

// Generate writes the HTML file and the requested companions next to it
func (g *Generator) Generate(ctx context.Context, c *domain.Catalog, ext *domain.Extraction, req domain.GenerateRequest) (*domain.Artifacts, error) {
	if c == nil {
		return nil, domain.OutputError("no catalog to render", nil)
	}
	if strings.TrimSpace(req.HTMLPath) == "" {
		return nil, domain.OutputError("output path is empty", nil)
	}
	log := g.log.WithContext(ctx)

	dir := filepath.Dir(req.HTMLPath)
	stem := strings.TrimSuffix(filepath.Base(req.HTMLPath), filepath.Ext(req.HTMLPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.OutputError("failed to create output directory", err)
	}

	art := &domain.Artifacts{}
	saved := map[int]bool{}
	if req.SaveImages && ext != nil {
		paths, err := g.saveImages(ctx, ext, filepath.Join(dir, domain.ImagesDir), saved)
		art.ImagePaths = paths
		if err != nil {
			return art, err
		}
	}

	html, err := g.RenderHTML(c, req.Language, saved)
	if err != nil {
		return art, err
	}
	if err := writeFileAtomic(req.HTMLPath, html); err != nil {
		return art, domain.OutputError("failed to write HTML file", err)
	}
	art.HTMLPath = req.HTMLPath
	log.Info().Str("path", req.HTMLPath).Int("products", len(c.Products)).Msg("shopping card written")

	if req.SaveJSON {
		dataPath := filepath.Join(dir, stem+"_data.json")
		if err := writeJSON(dataPath, c); err != nil {
			return art, domain.OutputError("failed to write catalog JSON", err)
		}
		art.DataPath = dataPath

		if ext != nil {
			extractedPath := filepath.Join(dir, stem+"_extracted.json")
			if err := writeJSON(extractedPath, exportExtraction(ext, saved)); err != nil {
				return art, domain.OutputError("failed to write extracted content", err)
			}
			art.ExtractedPath = extractedPath
		}
	}

	if req.Markdown {
		md, err := g.toMarkdown(string(html))
		if err != nil {
			return art, domain.OutputError("failed to convert HTML to Markdown", err)
		}
		mdPath := filepath.Join(dir, stem+".md")
		if err := writeFileAtomic(mdPath, []byte(md)); err != nil {
			return art, domain.OutputError("failed to write Markdown file", err)
		}
		art.MarkdownPath = mdPath
	}

	return art, nil
}

// RenderHTML renders the shopping card. Product images are only referenced
// for pages present in saved.
func (g *Generator) RenderHTML(c *domain.Catalog, lang domain.Language, saved map[int]bool) ([]byte, error) {
	data := pageData{
		Lang:    lang.Code(),
		RTL:     lang.Direction() == domain.DirectionRTL,
		Font:    fontFor(lang),
		Start:   "left",
		End:     "right",
		Labels:  labelsFor(lang),
		Catalog: c,
		Summary: sanitizeHTML(c.Summary),
	}
	if data.RTL {
		data.Start, data.End = "right", "left"
	}

	savedRefs := make(map[string]bool, len(saved))
	for page := range saved {
		savedRefs[domain.ImageRef(page)] = true
	}
	for _, p := range c.Products {
		v := productView{
			Name:         p.Name,
			Model:        p.Model.String(),
			Tagline:      p.Tagline,
			Description:  sanitizeHTML(p.Description),
			Features:     p.Features,
			Specs:        p.Specifications,
			Applications: p.Applications,
		}
		for _, ref := range p.Images {
			if savedRefs[ref] {
				v.Images = append(v.Images, ref)
			}
		}
		if p.Pricing != nil {
			v.Price = p.Pricing.Price.String()
			v.Currency = p.Pricing.Currency
			v.PriceNote = p.Pricing.Note
		}
		data.Products = append(data.Products, v)
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return nil, domain.OutputError("failed to render HTML", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) saveImages(ctx context.Context, ext *domain.Extraction, dir string, saved map[int]bool) ([]string, error) {
	var paths []string
	for _, page := range ext.Pages {
		if page.Image == nil || page.Image.ImagePath == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		if len(paths) == 0 {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, domain.OutputError("failed to create images directory", err)
			}
		}
		data, err := os.ReadFile(page.Image.ImagePath)
		if err != nil {
			return paths, domain.OutputError(fmt.Sprintf("failed to read image of page %d", page.PageNumber), err)
		}
		dst := filepath.Join(dir, domain.ImageName(page.PageNumber))
		if err := writeFileAtomic(dst, data); err != nil {
			return paths, domain.OutputError(fmt.Sprintf("failed to save image of page %d", page.PageNumber), err)
		}
		saved[page.PageNumber] = true
		paths = append(paths, dst)
	}
	g.log.Debug().Int("images", len(paths)).Str("dir", dir).Msg("page images saved")
	return paths, nil
}

// exportExtraction points page images at their saved copies; the work
// directory does not outlive the conversion
func exportExtraction(ext *domain.Extraction, saved map[int]bool) *domain.Extraction {
	out := &domain.Extraction{Document: ext.Document, Pages: make([]domain.PageContent, len(ext.Pages))}
	out.Document.FilePath = ""
	for i, p := range ext.Pages {
		out.Pages[i] = p
		if p.Image == nil {
			continue
		}
		img := *p.Image
		img.ImagePath = ""
		if saved[p.PageNumber] {
			img.ImagePath = domain.ImageRef(p.PageNumber)
		}
		out.Pages[i].Image = &img
	}
	return out
}

// LoadCatalog reads a catalog previously written as <stem>_data.json
func LoadCatalog(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ValidationError("failed to read catalog JSON", err)
	}
	var c domain.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, domain.ValidationError("invalid catalog JSON", err)
	}
	return &c, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// writeFileAtomic writes through a temporary file in the target directory
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".shopcard-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
