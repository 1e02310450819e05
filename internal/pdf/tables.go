package pdf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/spherical/shopcard/internal/domain"
)

const (
	// cellGapFactor is the horizontal gap, in multiples of the font size, that starts a new cell
	cellGapFactor = 1.5
	// wordGapFactor is the gap above which glyph runs are separated by a space
	wordGapFactor = 0.2
	// minTableRows is the number of consecutive multi-cell rows that form a table
	minTableRows = 2
)

// layoutRow is one visual line of a page split into cells by horizontal gaps
type layoutRow struct {
	Cells []string
}

func (r layoutRow) text() string {
	return strings.Join(r.Cells, " ")
}

// rowReader reads positioned text with ledongthuc/pdf
type rowReader struct {
	closer interface{ Close() error }
	r      *pdf.Reader
}

func openRowReader(path string) (rr *rowReader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf row reader panic: %v", rec)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &rowReader{closer: f, r: r}, nil
}

// Rows returns the layout rows of a 1-indexed page
func (rr *rowReader) Rows(pageNum int) (rows []layoutRow, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read rows of page %d: %v", pageNum, rec)
		}
	}()
	if pageNum < 1 || pageNum > rr.r.NumPage() {
		return nil, nil
	}
	p := rr.r.Page(pageNum)
	if p.V.IsNull() {
		return nil, nil
	}
	byRow, err := p.GetTextByRow()
	if err != nil {
		return nil, err
	}
	for _, row := range byRow {
		cells := splitCells(row.Content)
		if len(cells) > 0 {
			rows = append(rows, layoutRow{Cells: cells})
		}
	}
	return rows, nil
}

func (rr *rowReader) Close() error {
	if rr == nil || rr.closer == nil {
		return nil
	}
	return rr.closer.Close()
}

// splitCells orders glyph runs left to right and cuts cells at wide gaps
func splitCells(texts pdf.TextHorizontal) []string {
	if len(texts) == 0 {
		return nil
	}
	runs := make([]pdf.Text, len(texts))
	copy(runs, texts)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var cells []string
	var cur strings.Builder
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			cells = append(cells, s)
		}
		cur.Reset()
	}

	prevEnd := runs[0].X
	for i, t := range runs {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		if i > 0 {
			gap := t.X - prevEnd
			switch {
			case gap > cellGapFactor*size:
				flush()
			case gap > wordGapFactor*size && !strings.HasPrefix(t.S, " "):
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(t.S)
		if end := t.X + t.W; end > prevEnd || i == 0 {
			prevEnd = end
		}
	}
	flush()
	return cells
}

// detectTables returns every run of at least minTableRows consecutive rows
// having two or more cells
func detectTables(rows []layoutRow) []domain.Table {
	var tables []domain.Table
	var cur domain.Table
	closeRun := func() {
		if len(cur) >= minTableRows {
			tables = append(tables, cur)
		}
		cur = nil
	}
	for _, r := range rows {
		if len(r.Cells) >= 2 {
			cur = append(cur, append([]string(nil), r.Cells...))
			continue
		}
		closeRun()
	}
	closeRun()
	return tables
}

// rowsText joins rows into page text, one visual line per row
func rowsText(rows []layoutRow) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, r.text())
	}
	return strings.Join(lines, "\n")
}
