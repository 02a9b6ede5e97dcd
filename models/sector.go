package models

type Sector struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	GICSCode    string  `json:"gics_code"`
	ETFTicker   string  `json:"etf_ticker"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at"`
}

// SectorFinancials is a point-in-time snapshot. Nil fields have not been
// computed yet.
type SectorFinancials struct {
	SectorID       string   `json:"sector_id"`
	ETFPrice       *float64 `json:"etf_price"`
	PriceChange7d  *float64 `json:"price_change_7d"`
	PriceChange30d *float64 `json:"price_change_30d"`
	PriceChangeYTD *float64 `json:"price_change_ytd"`
	VsSPY7d        *float64 `json:"vs_spy_7d"`
	VsSPY30d       *float64 `json:"vs_spy_30d"`
	VolumeAvg30d   *float64 `json:"volume_avg_30d"`
	UpdatedAt      *string  `json:"updated_at"`
}

type SectorNarrative struct {
	ID              string   `json:"id"`
	SectorID        string   `json:"sector_id"`
	SummaryShort    *string  `json:"summary_short"`
	SummaryFull     *string  `json:"summary_full"`
	KeyThemes       []string `json:"key_themes"`
	Sentiment       *string  `json:"sentiment"`
	IRTalkingPoints []string `json:"ir_talking_points"`
	SignalCount     *int     `json:"signal_count"`
	CreatedAt       string   `json:"created_at"`
}

type SectorNarrativeSummary struct {
	SummaryShort *string  `json:"summary_short"`
	Sentiment    *string  `json:"sentiment"`
	KeyThemes    []string `json:"key_themes"`
}

// SectorWithMetrics is a dashboard row: a sector enriched with its latest
// financials, signal count for the requested window and narrative summary.
type SectorWithMetrics struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	GICSCode    string                  `json:"gics_code"`
	ETFTicker   string                  `json:"etf_ticker"`
	Financials  *SectorFinancials       `json:"financials"`
	SignalCount int                     `json:"signal_count"`
	Narrative   *SectorNarrativeSummary `json:"narrative"`
}

type InitData struct {
	Sectors         []SectorWithMetrics `json:"sectors"`
	LastPipelineRun *string             `json:"last_pipeline_run"`
}

type SectorDetail struct {
	Sector             Sector            `json:"sector"`
	Financials         *SectorFinancials `json:"financials"`
	Narrative          *SectorNarrative  `json:"narrative"`
	Signals            []Signal          `json:"signals"`
	SignalCountsByType map[string]int    `json:"signal_counts_by_type"`
}
