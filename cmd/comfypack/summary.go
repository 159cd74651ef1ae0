package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dukex/comfypack/pkg/models"
)

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	summaryOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	summaryWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	summaryErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	summaryBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#999999")).
				Padding(0, 1)
)

func renderSummary(summary *models.Summary) string {
	var b strings.Builder

	b.WriteString(summaryTitleStyle.Render("Run summary"))
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s plugins resolved, %d dropped\n",
		summaryOKStyle.Render(fmt.Sprintf("%d", summary.PluginsResolved)),
		len(summary.PluginsDropped))
	fmt.Fprintf(&b, "%s models included, %d deferred, %d skipped, %d unresolved\n",
		summaryOKStyle.Render(fmt.Sprintf("%d", summary.ModelsIncluded)),
		summary.ModelsDeferred,
		summary.ModelsSkipped,
		len(summary.ModelsUnresolved))
	fmt.Fprintf(&b, "%d files copied\n", summary.FilesCopied)

	for _, name := range summary.ModelsUnresolved {
		b.WriteString(summaryWarnStyle.Render("unresolved: "+name) + "\n")
	}

	for _, warning := range summary.Warnings {
		b.WriteString(summaryWarnStyle.Render("warning: "+warning) + "\n")
	}

	for _, fileErr := range summary.FileErrors {
		b.WriteString(summaryErrStyle.Render("error: "+fileErr) + "\n")
	}

	return summaryBoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
