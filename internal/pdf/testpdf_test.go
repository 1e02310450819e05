package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// buildTestPDF writes a minimal PDF with one page per entry of pages. Each
// entry is a list of lines drawn top to bottom in Helvetica 12pt.
func buildTestPDF(t *testing.T, pages [][]string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	// objects: 1 catalog, 2 pages, 3 font, then (page, content) pairs
	n := 3 + 2*len(pages)
	offsets := make([]int, n+1)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), len(pages))

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	for i, lines := range pages {
		pageObj, contentObj := 4+2*i, 5+2*i

		var stream strings.Builder
		y := 720
		for _, line := range lines {
			fmt.Fprintf(&stream, "BT\n/F1 12 Tf\n72 %d Td\n(%s) Tj\nET\n", y, escapePDF(line))
			y -= 20
		}

		offsets[pageObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n", pageObj, contentObj)

		offsets[contentObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", contentObj, stream.Len(), stream.String())
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", n+1)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", n+1, xref)

	path := filepath.Join(t.TempDir(), "catalog.pdf")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func escapePDF(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	return strings.ReplaceAll(s, ")", `\)`)
}
