package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/paths"
)

// FormMarkdown renders the visible form of a node as markdown.
func FormMarkdown(title string, form domain.FormState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "_node `%s`, version %d_\n\n", form.NodeID, form.Version)

	if len(form.Credentials) > 0 {
		sb.WriteString("## Credentials\n\n")
		for _, c := range form.Credentials {
			fmt.Fprintf(&sb, "- `%s`\n", c.Name)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Properties\n\n")
	if len(form.Properties) == 0 {
		sb.WriteString("_No visible properties._\n")
	} else {
		sb.WriteString("| Property | Type | Value | Status |\n")
		sb.WriteString("|---|---|---|---|\n")
		writeRows(&sb, form, form.Properties, "", 0)
	}

	if len(form.Issues) > 0 {
		sb.WriteString("\n## Issues\n\n")
		for _, issue := range form.Issues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
	}
	return sb.String()
}

func writeRows(sb *strings.Builder, form domain.FormState, props []domain.Property, parent string, depth int) {
	for i := range props {
		p := &props[i]
		path := parent
		if p.Type != domain.PropertySection {
			path = paths.Join(parent, p.Name)
		}

		name := strings.Repeat("&nbsp;&nbsp;", depth) + escape(p.Label())
		value := ""
		if p.Type != domain.PropertySection && p.Type != domain.PropertyCollection {
			if v, ok := paths.Get(form.Inputs, path); ok {
				value = formatValue(p, v)
			}
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %s |\n", name, p.Type, value, asyncStatus(form, path))

		if p.Type != domain.PropertyArray {
			writeRows(sb, form, p.Collection, path, depth+1)
		}
	}
}

func formatValue(p *domain.Property, v any) string {
	switch {
	case v == nil:
		return ""
	case p.Type == domain.PropertyPassword:
		return "•••"
	case p.Type == domain.PropertyArray:
		if items, ok := v.([]any); ok {
			return fmt.Sprintf("%d item(s)", len(items))
		}
	}
	return "`" + escape(fmt.Sprint(v)) + "`"
}

func asyncStatus(form domain.FormState, path string) string {
	state, ok := form.Async[path]
	if !ok {
		return ""
	}
	parts := []string{state.Status}
	if n := len(state.Options); n > 0 {
		parts = append(parts, fmt.Sprintf("%d option(s)", n))
	}
	if state.Error != "" {
		parts = append(parts, escape(state.Error))
	}
	return strings.Join(parts, ", ")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
