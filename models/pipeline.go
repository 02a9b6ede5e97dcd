package models

type PipelineRunResult struct {
	Status              string  `json:"status"`
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
	SectorsProcessed    int     `json:"sectors_processed"`
	TotalNewArticles    int     `json:"total_new_articles"`
	TotalSignals        int     `json:"total_signals"`
	FinancialsUpdated   int     `json:"financials_updated"`
	NarrativesGenerated int     `json:"narratives_generated"`
}

type FinancialsRefresh struct {
	FinancialsUpdated int `json:"financials_updated"`
}
