package domain

import "context"

// Extractor turns a PDF into a document plus one extracted unit per page
type Extractor interface {
	// Extract reads pdfPath; progress is reported through onPage when non-nil
	Extract(ctx context.Context, pdfPath string, onPage func(done, total int)) (*Extraction, error)

	// Cleanup removes temporary files created during extraction
	Cleanup() error
}

// Analyzer turns extracted content into a catalog result
type Analyzer interface {
	Analyze(ctx context.Context, ext *Extraction, opts AnalyzeOptions) (*Catalog, error)
}

// AnalyzeOptions selects how the analyzer interprets the extraction
type AnalyzeOptions struct {
	UseAI     bool
	UseVision bool
	Language  Language
}

// Translator rewrites catalog values into another language
type Translator interface {
	Translate(ctx context.Context, c *Catalog, lang Language) (*Catalog, error)
}

// Generator writes the rendered artifacts of a catalog
type Generator interface {
	Generate(ctx context.Context, c *Catalog, ext *Extraction, req GenerateRequest) (*Artifacts, error)
}

// GenerateRequest tells the generator where and what to write
type GenerateRequest struct {
	HTMLPath   string
	Language   Language
	SaveJSON   bool
	SaveImages bool
	Markdown   bool
}

// Artifacts lists the files a conversion produced
type Artifacts struct {
	HTMLPath      string
	DataPath      string
	ExtractedPath string
	MarkdownPath  string
	ImagePaths    []string
}

// Files returns every artifact path that was written
func (a *Artifacts) Files() []string {
	if a == nil {
		return nil
	}
	var out []string
	for _, p := range []string{a.HTMLPath, a.DataPath, a.ExtractedPath, a.MarkdownPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return append(out, a.ImagePaths...)
}
