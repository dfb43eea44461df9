package analysis

import (
	"html"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SectionNames lists the recognized headings in rendering order.
var SectionNames = []string{
	"Summary",
	"Historical Accuracy",
	"Scientific Accuracy",
	"Speculative Claims",
	"Religious/Mythological References",
}

var headingPrefixes = []string{"", "# ", "## "}

type Section struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// ParseSections splits synthesized text into the fixed set of sections.
//
// A line is a heading when it starts with a section name, optionally preceded by
// "# " or "## ". Heading lines themselves are not content, and lines before the
// first heading are dropped. The result always has one entry per SectionNames
// element, in that order; bodies are trimmed and may be empty.
func ParseSections(text string) []Section {
	bodies := make(map[string]*strings.Builder, len(SectionNames))
	for _, name := range SectionNames {
		bodies[name] = &strings.Builder{}
	}

	current := ""
	for _, line := range strings.Split(text, "\n") {
		if name, ok := headingOf(line); ok {
			current = name
			continue
		}
		if current != "" {
			bodies[current].WriteString(line)
			bodies[current].WriteByte('\n')
		}
	}

	sections := make([]Section, 0, len(SectionNames))
	for _, name := range SectionNames {
		sections = append(sections, Section{Name: name, Body: strings.TrimSpace(bodies[name].String())})
	}
	return sections
}

func headingOf(line string) (string, bool) {
	for _, name := range SectionNames {
		for _, prefix := range headingPrefixes {
			if strings.HasPrefix(line, prefix+name) {
				return name, true
			}
		}
	}
	return "", false
}

// RenderHTML renders the non-empty sections as heading plus body blocks.
func RenderHTML(sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		b.WriteString("<div class='analysis-section'><h2>")
		b.WriteString(html.EscapeString(s.Name))
		b.WriteString("</h2><div class='section-content'>")
		b.WriteString(html.EscapeString(s.Body))
		b.WriteString("</div></div>")
	}
	return b.String()
}

// RenderText renders the non-empty sections as a terminal table.
func RenderText(title string, sections []Section) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = true
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"Section", "Findings"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 100},
	})
	for _, s := range sections {
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		t.AppendRow(table.Row{s.Name, s.Body})
	}
	return t.Render()
}
