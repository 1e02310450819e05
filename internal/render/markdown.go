package render

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// toMarkdown converts a rendered shopping card into Markdown
func (g *Generator) toMarkdown(html string) (string, error) {
	md, err := g.md.ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md) + "\n", nil
}
