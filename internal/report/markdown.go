package report

import (
	"fmt"
	"strings"

	"github.com/genereveal-server/internal/form"
	"github.com/genereveal-server/internal/result"
	"github.com/genereveal-server/internal/schema"
)

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`#`, `\#`,
	`|`, `\|`,
)

// RenderMarkdown renders the report contents as Markdown for terminal display
func RenderMarkdown(reg *schema.Registry, state *form.State, r *result.PredictionResult) (string, error) {
	d, err := Build(reg, state, r)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Patient Details\n\n")
	writeRows(&b, d.Patient)

	b.WriteString("## Predicted Outcomes\n\n")
	writeRows(&b, d.Outcomes)

	b.WriteString("## Confidence Distributions\n\n")
	for _, sec := range d.Confidences {
		fmt.Fprintf(&b, "### %s\n\n", mdEscaper.Replace(sec.Target))
		writeRows(&b, sec.Rows)
	}

	b.WriteString("## Supervision Note\n\n")
	for _, line := range strings.Split(d.Note, "\n") {
		fmt.Fprintf(&b, "> %s\n", mdEscaper.Replace(line))
	}
	return b.String(), nil
}

func writeRows(b *strings.Builder, rows []Row) {
	for _, row := range rows {
		fmt.Fprintf(b, "- **%s**: %s\n", mdEscaper.Replace(row.Label), mdEscaper.Replace(row.Value))
	}
	b.WriteString("\n")
}
