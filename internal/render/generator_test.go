package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/shopcard/internal/domain"
)

func testCatalog() *domain.Catalog {
	c := &domain.Catalog{
		ProductFamily: "Acme Pumps",
		Category:      "Industrial",
		Company:       &domain.Company{Name: "Acme", Email: "info@acme.example"},
		Products: []domain.Product{
			{
				Name:         "XR-200 Industrial Pump",
				Model:        "XR-200",
				Tagline:      "Built to last",
				Description:  "Quiet pump.<script>alert(1)</script>\nSecond line.",
				Features:     []string{"Low noise", "Steel <housing>"},
				Applications: []string{"Irrigation"},
				Pricing:      &domain.Pricing{Price: "1,299.00", Currency: "USD", Note: "Excl. VAT"},
				Images:       []string{"images/page_001.jpg"},
				ImagesCount:  1,
			},
			{Name: "XR-300"},
		},
		Meta: &domain.ConversionMeta{
			RunID:       "run-1",
			SourceFile:  "acme.pdf",
			Pages:       1,
			Mode:        domain.ModeHeuristic,
			GeneratedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	c.Products[0].Specifications.Add("Performance", "Flow", "120 L/min")
	c.Products[0].Specifications.Add("Performance", "Power", "2 kW")
	c.SetLanguage(domain.LanguageEnglish)
	return c
}

func testExtraction(t *testing.T) *domain.Extraction {
	t.Helper()
	work := t.TempDir()
	img := filepath.Join(work, domain.ImageName(1))
	require.NoError(t, os.WriteFile(img, []byte{0xff, 0xd8, 0xff, 0xd9}, 0o644))
	return &domain.Extraction{
		Document: domain.Document{FilePath: "/in/acme.pdf", SourceFile: "acme.pdf", TotalPages: 1},
		Pages: []domain.PageContent{
			{PageNumber: 1, Text: "XR-200", Image: &domain.PageImage{PageNumber: 1, ImagePath: img, MIMEType: "image/jpeg"}},
		},
	}
}

func TestGenerate_AllArtifacts(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cards", "acme_shopping_card.html")
	g := NewGenerator(nil)

	art, err := g.Generate(context.Background(), testCatalog(), testExtraction(t), domain.GenerateRequest{
		HTMLPath:   out,
		Language:   domain.LanguageEnglish,
		SaveJSON:   true,
		SaveImages: true,
		Markdown:   true,
	})
	require.NoError(t, err)

	dir := filepath.Dir(out)
	assert.Equal(t, out, art.HTMLPath)
	assert.Equal(t, filepath.Join(dir, "acme_shopping_card_data.json"), art.DataPath)
	assert.Equal(t, filepath.Join(dir, "acme_shopping_card_extracted.json"), art.ExtractedPath)
	assert.Equal(t, filepath.Join(dir, "acme_shopping_card.md"), art.MarkdownPath)
	assert.Equal(t, []string{filepath.Join(dir, "images", "page_001.jpg")}, art.ImagePaths)
	for _, f := range art.Files() {
		assert.FileExists(t, f)
	}

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, `<html lang="en">`)
	assert.NotContains(t, page, `dir="rtl"`)
	assert.Contains(t, page, "Key Features")
	assert.Contains(t, page, "Technical Specifications")
	assert.Contains(t, page, "Add to Cart")
	assert.Contains(t, page, `src="images/page_001.jpg"`)
	assert.Contains(t, page, "Steel &lt;housing&gt;")
	assert.Contains(t, page, "Quiet pump.<br>Second line.")
	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "Contact for quote")

	md, err := os.ReadFile(art.MarkdownPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Acme Pumps")
	assert.Contains(t, string(md), "Low noise")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestGenerate_JSONRoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "acme.html")
	c := testCatalog()
	g := NewGenerator(nil)

	art, err := g.Generate(context.Background(), c, testExtraction(t), domain.GenerateRequest{HTMLPath: out, SaveJSON: true})
	require.NoError(t, err)

	loaded, err := LoadCatalog(art.DataPath)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	again, err := g.RenderHTML(loaded, domain.LanguageEnglish, nil)
	require.NoError(t, err)
	assert.Equal(t, string(html), string(again))
}

func TestGenerate_NoImagesWhenDisabled(t *testing.T) {
	out := filepath.Join(t.TempDir(), "acme.html")
	g := NewGenerator(nil)

	art, err := g.Generate(context.Background(), testCatalog(), testExtraction(t), domain.GenerateRequest{HTMLPath: out})
	require.NoError(t, err)
	assert.Empty(t, art.ImagePaths)
	assert.Empty(t, art.DataPath)
	assert.Empty(t, art.MarkdownPath)
	assert.NoDirExists(t, filepath.Join(filepath.Dir(out), "images"))

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<img")
}

func TestRenderHTML_Languages(t *testing.T) {
	tests := []struct {
		lang   domain.Language
		attr   string
		rtl    bool
		font   string
		label  string
		border string
	}{
		{domain.LanguageEnglish, `lang="en"`, false, "'Segoe UI'", "Add to Cart", "border-left: 5px"},
		{domain.LanguagePersian, `lang="fa"`, true, "'Vazirmatn'", "افزودن به سبد خرید", "border-right: 5px"},
		{domain.LanguageChinese, `lang="zh"`, false, "'Microsoft YaHei'", "加入购物车", "border-left: 5px"},
	}

	g := NewGenerator(nil)
	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			html, err := g.RenderHTML(testCatalog(), tt.lang, nil)
			require.NoError(t, err)
			page := string(html)
			assert.Contains(t, page, tt.attr)
			assert.Equal(t, tt.rtl, strings.Contains(page, `dir="rtl"`))
			assert.Contains(t, page, tt.font)
			assert.Contains(t, page, tt.label)
			assert.Contains(t, page, tt.border)
		})
	}
}

func TestGenerate_OutputErrors(t *testing.T) {
	g := NewGenerator(nil)

	_, err := g.Generate(context.Background(), testCatalog(), nil, domain.GenerateRequest{})
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeOutput))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	_, err = g.Generate(context.Background(), testCatalog(), nil, domain.GenerateRequest{HTMLPath: filepath.Join(blocker, "out.html")})
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeOutput))
}

func TestExportExtraction(t *testing.T) {
	ext := testExtraction(t)
	out := exportExtraction(ext, map[int]bool{1: true})
	assert.Equal(t, "images/page_001.jpg", out.Pages[0].Image.ImagePath)
	assert.Empty(t, out.Document.FilePath)
	assert.NotEqual(t, out.Pages[0].Image.ImagePath, ext.Pages[0].Image.ImagePath)

	out = exportExtraction(ext, nil)
	assert.Empty(t, out.Pages[0].Image.ImagePath)
}
