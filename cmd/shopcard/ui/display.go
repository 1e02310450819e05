package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spherical/shopcard/internal/domain"
)

// maxSummaryProducts caps the product table printed after a conversion
const maxSummaryProducts = 10

// Table displays data in a formatted table.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// KeyValue displays a key-value pair in a formatted way.
func KeyValue(key, value string) {
	fmt.Fprintf(stdout, "  %s %s\n", keyColor.Sprint(key+":"), value)
}

// ProductRows builds the summary rows for at most ten products
func ProductRows(products []domain.Product) [][]string {
	rows := make([][]string, 0, min(len(products), maxSummaryProducts))
	for i, p := range products {
		if i >= maxSummaryProducts {
			break
		}
		model := p.Model.String()
		if model == "" {
			model = "N/A"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			truncateCell(p.Name, 40),
			model,
			fmt.Sprintf("%d", len(p.Features)),
			fmt.Sprintf("%d", p.SpecCount()),
		})
	}
	return rows
}

// CatalogSummary prints the conversion summary: catalog facts and a product table
func CatalogSummary(c *domain.Catalog, htmlPath string, elapsed time.Duration) {
	Section("Conversion Complete")
	KeyValue("Output HTML", htmlPath)
	KeyValue("Product Family", c.ProductFamily)
	KeyValue("Category", c.Category)
	company := "N/A"
	if c.Company != nil && c.Company.Name != "" {
		company = c.Company.Name
	}
	KeyValue("Company", company)
	KeyValue("Products Found", fmt.Sprintf("%d", len(c.Products)))
	if c.Meta != nil {
		mode := c.Meta.Mode
		if c.Meta.Provider != "" {
			mode += " (" + c.Meta.Provider + ")"
		}
		KeyValue("Analysis", mode)
	}
	KeyValue("Duration", FormatDuration(elapsed))

	if len(c.Products) == 0 {
		return
	}
	Section("Products Extracted")
	Table([]string{"#", "Name", "Model", "Features", "Specs"}, ProductRows(c.Products))
	if extra := len(c.Products) - maxSummaryProducts; extra > 0 {
		fmt.Fprintf(stdout, "  ... and %d more products\n", extra)
	}
}

func truncateCell(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
