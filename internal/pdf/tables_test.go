package pdf

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"

	"github.com/spherical/shopcard/internal/domain"
)

// glyphs lays out s as one run per character, 6pt wide, starting at x
func glyphs(s string, x float64) []pdf.Text {
	var out []pdf.Text
	for _, r := range s {
		out = append(out, pdf.Text{X: x, W: 6, FontSize: 12, S: string(r)})
		x += 6
	}
	return out
}

func TestSplitCells(t *testing.T) {
	tests := []struct {
		name string
		in   pdf.TextHorizontal
		want []string
	}{
		{
			name: "single run",
			in:   glyphs("Flow", 72),
			want: []string{"Flow"},
		},
		{
			name: "small gap is a word break",
			in:   append(glyphs("Max", 72), glyphs("flow", 72+18+4)...),
			want: []string{"Max flow"},
		},
		{
			name: "wide gap is a new cell",
			in:   append(glyphs("Weight", 72), glyphs("4kg", 300)...),
			want: []string{"Weight", "4kg"},
		},
		{
			name: "out of order runs are sorted",
			in:   append(glyphs("B", 300), glyphs("A", 72)...),
			want: []string{"A", "B"},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCells(tt.in))
		})
	}
}

func TestDetectTables(t *testing.T) {
	rows := []layoutRow{
		{Cells: []string{"Heading"}},
		{Cells: []string{"Voltage", "230 V"}},
		{Cells: []string{"Current", "10 A"}},
		{Cells: []string{"Some prose"}},
		{Cells: []string{"Lonely", "row"}},
		{Cells: []string{"Size", "S", "M"}},
		{Cells: []string{"Color", "Red", "Blue"}},
		{Cells: []string{"Weight", "1", "2"}},
	}

	got := detectTables(rows)
	assert.Equal(t, []domain.Table{
		{{"Voltage", "230 V"}, {"Current", "10 A"}},
		{{"Lonely", "row"}, {"Size", "S", "M"}, {"Color", "Red", "Blue"}, {"Weight", "1", "2"}},
	}, got)
}

func TestDetectTables_SingleRowIsNotATable(t *testing.T) {
	rows := []layoutRow{{Cells: []string{"a", "b"}}, {Cells: []string{"text"}}}
	assert.Empty(t, detectTables(rows))
}

func TestRowsText(t *testing.T) {
	rows := []layoutRow{{Cells: []string{"Voltage", "230 V"}}, {Cells: []string{"Note"}}}
	assert.Equal(t, "Voltage 230 V\nNote", rowsText(rows))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Language
	}{
		{"english", "Industrial pumps for every need", domain.LanguageEnglish},
		{"persian", "پمپ های صنعتی برای هر نیاز", domain.LanguagePersian},
		{"chinese", "工业泵 适用于各种需求", domain.LanguageChinese},
		{"mostly english with one arabic word", "Industrial pumps for every need and more and more پمپ", domain.LanguageEnglish},
		{"empty", "", domain.LanguageEnglish},
		{"digits only", "12345 67", domain.LanguageEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text))
		})
	}
}
