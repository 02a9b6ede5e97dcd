package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"sector-intel/components"
	"sector-intel/format"
	"sector-intel/models"
	"sector-intel/viewstate"
)

var sectorDays int

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	nameStyle     = lipgloss.NewStyle().Width(28)
	tickerStyle   = lipgloss.NewStyle().Width(6).Foreground(lipgloss.Color("244"))
	countStyle    = lipgloss.NewStyle().Width(8).Align(lipgloss.Right)
	positiveStyle = lipgloss.NewStyle().Width(9).Align(lipgloss.Right).Foreground(lipgloss.Color("34"))
	negativeStyle = lipgloss.NewStyle().Width(9).Align(lipgloss.Right).Foreground(lipgloss.Color("160"))
	neutralStyle  = lipgloss.NewStyle().Width(9).Align(lipgloss.Right).Foreground(lipgloss.Color("244"))
)

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "List sectors ordered by signal count",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !viewstate.ValidTimeWindow(sectorDays) {
			return fmt.Errorf("--days must be one of 7, 14, 30")
		}
		data, err := newAPIClient().GetInitData(cmd.Context(), sectorDays)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), renderSectors(data, time.Now()))
		return nil
	},
}

func init() {
	sectorsCmd.Flags().IntVar(&sectorDays, "days", viewstate.DefaultTimeWindow, "time window in days (7, 14 or 30)")
}

func renderSectors(data *models.InitData, now time.Time) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Last updated: %s", format.RelativeTimePtr(data.LastPipelineRun, now))))
	b.WriteString("\n\n")
	b.WriteString(headerStyle.Render(nameStyle.Render("Sector") + tickerStyle.Render("ETF") +
		countStyle.Render("Signals") + neutralStyle.Render("7D") + neutralStyle.Render("30D") + "  Sentiment"))
	b.WriteString("\n")

	sectors := components.SortedBySignalCount(data.Sectors)
	if len(sectors) == 0 {
		b.WriteString(components.NoSectors + "\n")
		return b.String()
	}
	for _, s := range sectors {
		var change7d, change30d *float64
		if s.Financials != nil {
			change7d, change30d = s.Financials.PriceChange7d, s.Financials.PriceChange30d
		}
		var sentiment *string
		if s.Narrative != nil {
			sentiment = s.Narrative.Sentiment
		}
		b.WriteString(nameStyle.Render(s.Name))
		b.WriteString(tickerStyle.Render(s.ETFTicker))
		b.WriteString(countStyle.Render(fmt.Sprint(s.SignalCount)))
		b.WriteString(perfCell(change7d))
		b.WriteString(perfCell(change30d))
		b.WriteString("  " + components.SentimentBadge(sentiment).Label)
		b.WriteString("\n")
	}
	return b.String()
}

func perfCell(v *float64) string {
	p := format.Performance(v)
	switch p.Color {
	case format.ColorPositive:
		return positiveStyle.Render(p.Text)
	case format.ColorNegative:
		return negativeStyle.Render(p.Text)
	}
	return neutralStyle.Render(p.Text)
}
