package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sector-intel/components"
	"sector-intel/models"
)

func TestRenderSectorsOrdersBySignalCount(t *testing.T) {
	up, down := 2.04, -3.25
	negative := "negative"
	run := "2024-06-01T10:00:00Z"
	data := &models.InitData{
		Sectors: []models.SectorWithMetrics{
			{ID: "a", Name: "Alpha", ETFTicker: "XLA", SignalCount: 5, Financials: &models.SectorFinancials{PriceChange7d: &up}},
			{ID: "b", Name: "Beta", ETFTicker: "XLB", SignalCount: 12, Financials: &models.SectorFinancials{PriceChange7d: &down},
				Narrative: &models.SectorNarrativeSummary{Sentiment: &negative}},
		},
		LastPipelineRun: &run,
	}

	out := renderSectors(data, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "Last updated: 2h ago")
	alpha, beta := strings.Index(out, "Alpha"), strings.Index(out, "Beta")
	assert.True(t, beta > 0 && beta < alpha, "Beta has more signals and comes first")
	assert.Contains(t, out, "+2.0%")
	assert.Contains(t, out, "-3.3%")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "Negative")
}

func TestRenderSectorsEmpty(t *testing.T) {
	out := renderSectors(&models.InitData{}, time.Now())
	assert.Contains(t, out, "Last updated: Never")
	assert.Contains(t, out, components.NoSectors)
}
