package export

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"plurianual/internal/budget"
	"plurianual/internal/domain"
)

type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

var Formats = []Format{FormatText, FormatCSV, FormatHTML, FormatMarkdown}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatCSV, FormatHTML, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Ext is the file extension used for the format.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatHTML:
		return "html"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

func Render(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatText:
		return renderText(w, doc)
	case FormatCSV:
		return renderCSV(w, doc)
	case FormatHTML:
		return renderHTML(w, doc)
	case FormatMarkdown:
		return renderMarkdown(w, doc)
	}
	return fmt.Errorf("unknown export format %q", string(f))
}

func headerTable(doc Document) table.Writer {
	tw := table.NewWriter()
	for _, f := range doc.Header {
		tw.AppendRow(table.Row{f.Label, f.Value})
	}
	return tw
}

func actionsTable(doc Document) table.Writer {
	tw := table.NewWriter()
	head := table.Row{"Ação", "Produto", "Unidade de medida", "Fonte"}
	for _, y := range domain.FiscalYears {
		year := strconv.Itoa(y)
		head = append(head, "Meta "+year, "Orçamento "+year)
	}
	head = append(head, "Total")
	tw.AppendHeader(head)
	for _, r := range doc.Rows {
		row := table.Row{r.Nome, r.Produto, r.UnidadeMedida, r.Fonte}
		for _, c := range r.Years {
			row = append(row, c.Meta, budget.FormatAmount(c.Orcamento))
		}
		row = append(row, budget.FormatAmount(r.Total))
		tw.AppendRow(row)
	}
	footer := make(table.Row, len(head))
	footer[0] = "Total do programa"
	for i := 1; i < len(head)-1; i++ {
		footer[i] = ""
	}
	footer[len(head)-1] = budget.FormatAmount(doc.Total)
	tw.AppendFooter(footer)
	return tw
}

func renderText(w io.Writer, doc Document) error {
	ht := headerTable(doc)
	ht.SetTitle(doc.Title)
	if _, err := fmt.Fprintln(w, ht.Render()); err != nil {
		return err
	}
	for _, s := range doc.Sections {
		if _, err := fmt.Fprintf(w, "\n%s\n%s\n%s\n", s.Title, strings.Repeat("-", len([]rune(s.Title))), s.Body); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%s\n", actionsTable(doc).Render())
	return err
}

func renderCSV(w io.Writer, doc Document) error {
	ht := headerTable(doc)
	for _, s := range doc.Sections {
		ht.AppendRow(table.Row{s.Title, s.Body})
	}
	_, err := fmt.Fprintf(w, "%s\n\n%s\n", ht.RenderCSV(), actionsTable(doc).RenderCSV())
	return err
}

func renderMarkdown(w io.Writer, doc Document) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	for _, f := range doc.Header {
		fmt.Fprintf(&b, "- **%s:** %s\n", f.Label, f.Value)
	}
	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", s.Title, s.Body)
	}
	fmt.Fprintf(&b, "\n## Ações\n\n%s\n", actionsTable(doc).RenderMarkdown())
	_, err := io.WriteString(w, b.String())
	return err
}

func renderHTML(w io.Writer, doc Document) error {
	var b strings.Builder
	title := html.EscapeString(doc.Title)
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html lang=\"pt-BR\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", title)
	fmt.Fprintf(&b, "<h1>%s</h1>\n<dl>\n", title)
	for _, f := range doc.Header {
		fmt.Fprintf(&b, "<dt>%s</dt><dd>%s</dd>\n", html.EscapeString(f.Label), html.EscapeString(f.Value))
	}
	b.WriteString("</dl>\n")
	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "<h2>%s</h2>\n<p>%s</p>\n", html.EscapeString(s.Title), html.EscapeString(s.Body))
	}
	fmt.Fprintf(&b, "<h2>Ações</h2>\n%s\n</body>\n</html>\n", actionsTable(doc).RenderHTML())
	_, err := io.WriteString(w, b.String())
	return err
}
