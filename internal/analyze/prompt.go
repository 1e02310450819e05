package analyze

import (
	"fmt"
	"strings"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/llm"
)

// Limits shape the request sent to a provider
type Limits struct {
	VisionPages     int // pages whose images are considered in vision mode
	VisionImages    int // images actually attached in vision mode
	VisionTextLimit int // characters of text sent alongside images
	TextLimit       int // characters of text sent in text mode
	TableLimit      int // tables appended in text mode
	TableRows       int // rows per appended table
	MaxTokens       int
}

// DefaultLimits returns the request caps used when none are configured
func DefaultLimits() Limits {
	return Limits{
		VisionPages:     5,
		VisionImages:    3,
		VisionTextLimit: 15000,
		TextLimit:       20000,
		TableLimit:      5,
		TableRows:       10,
		MaxTokens:       4096,
	}
}

const systemPrompt = "You are an expert at analyzing product catalogs. Extract ONLY the information present in the provided content. " +
	"NEVER invent model numbers. Return ONLY valid JSON with no markdown formatting."

const analysisPrompt = `You are analyzing a product catalog PDF. Extract and structure ALL product information into JSON for an e-commerce shopping card.

Your task:
1. Identify ALL products/models in the catalog (could be 1 or 100+ products)
2. Extract product details, specifications, features, pricing
3. Identify the company/brand information
4. Detect the product category/industry

Return ONLY valid JSON in this exact structure:
{
    "product_family": "Main product line or catalog name",
    "category": "Product category (e.g., Electronics, Industrial, Fashion)",
    "company": {
        "name": "Company name",
        "website": "Website URL if found",
        "phone": "Phone number if found",
        "email": "Email if found"
    },
    "products": [
        {
            "name": "Full product name",
            "model": "Model number/SKU",
            "tagline": "Short marketing tagline",
            "description": "Detailed product description",
            "features": ["feature 1", "feature 2"],
            "specifications": {
                "Category Name": {
                    "spec_name": "spec_value"
                }
            },
            "applications": ["use case 1", "use case 2"],
            "pricing": {
                "price": "price value or 'Contact for quote'",
                "currency": "USD/EUR/etc",
                "note": "any pricing notes"
            },
            "images_count": 0
        }
    ]
}

Rules:
- Extract ALL products (not just one)
- Be precise with specifications
- Preserve exact model numbers
- Include all features mentioned
- If information is missing, omit the field or use null
- Return ONLY valid JSON, no other text`

// combineText joins page texts under page markers
func combineText(ext *domain.Extraction) string {
	var parts []string
	for _, p := range ext.Pages {
		if !p.HasText() {
			continue
		}
		parts = append(parts, fmt.Sprintf("=== Page %d ===\n%s", p.PageNumber, strings.TrimSpace(p.Text)))
	}
	return strings.Join(parts, "\n\n")
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// textRequest builds a text-mode request: capped text plus the first tables
func textRequest(ext *domain.Extraction, lim Limits) llm.Request {
	var b strings.Builder
	b.WriteString(analysisPrompt)
	b.WriteString("\n\nIMPORTANT: Extract ONLY the actual model numbers and information from the text below. Do NOT make up or invent any model numbers.")
	b.WriteString("\n\nFull Text Content:\n")
	b.WriteString(truncate(combineText(ext), lim.TextLimit))

	if tables := ext.AllTables(); len(tables) > 0 {
		fmt.Fprintf(&b, "\n\nTables Found: %d", len(tables))
		for i, t := range tables {
			if i >= lim.TableLimit {
				break
			}
			fmt.Fprintf(&b, "\n\nTable %d (page %d):\n", i+1, t.Page)
			for j, row := range t.Rows {
				if j >= lim.TableRows {
					break
				}
				b.WriteString(strings.Join(row, " | "))
				b.WriteByte('\n')
			}
		}
	}

	return llm.Request{
		System:    systemPrompt,
		Prompt:    b.String(),
		MaxTokens: lim.MaxTokens,
		JSON:      true,
	}
}

// visionRequest builds a vision-mode request: page images plus capped text
func visionRequest(ext *domain.Extraction, lim Limits) (llm.Request, error) {
	images, err := llm.LoadImages(ext.Images(lim.VisionPages, lim.VisionImages))
	if err != nil {
		return llm.Request{}, err
	}
	prompt := analysisPrompt + "\n\nExtracted Text:\n" + truncate(combineText(ext), lim.VisionTextLimit)
	return llm.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		Images:    images,
		MaxTokens: lim.MaxTokens,
		JSON:      true,
	}, nil
}

// summaryRequest asks a non-structured provider for a plain summary
func summaryRequest(ext *domain.Extraction, lim Limits) llm.Request {
	return llm.Request{
		Prompt:    "Analyze this product catalog and extract all product names, models, specifications, and features:\n\n" + truncate(combineText(ext), lim.TextLimit),
		MaxTokens: lim.MaxTokens,
	}
}
