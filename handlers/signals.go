package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sector-intel/components"
	"sector-intel/models"
	"sector-intel/query"
	"sector-intel/viewstate"
)

type StatsData struct {
	Days            int     `json:"days"`
	Sectors         int     `json:"sectors"`
	Signals         int     `json:"signals"`
	Positive        int     `json:"positive"`
	Negative        int     `json:"negative"`
	Neutral         int     `json:"neutral"`
	Mixed           int     `json:"mixed"`
	AvgChange7d     float64 `json:"avg_change_7d"`
	LastPipelineRun *string `json:"last_pipeline_run"`
}

// GetSectors returns the dashboard sectors as JSON, ordered like the list
// view.
func (h *Handler) GetSectors(c *gin.Context) {
	data, days, ok := h.initData(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"days":    days,
		"sectors": components.SortedBySignalCount(data.Sectors),
	})
}

// GetStats aggregates the dashboard data for the requested window.
func (h *Handler) GetStats(c *gin.Context) {
	data, days, ok := h.initData(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sectorStats(data, days))
}

func sectorStats(data *models.InitData, days int) StatsData {
	stats := StatsData{
		Days:            days,
		Sectors:         len(data.Sectors),
		LastPipelineRun: data.LastPipelineRun,
	}
	var changeSum float64
	var changeCount int
	for _, s := range data.Sectors {
		stats.Signals += s.SignalCount
		var sentiment *string
		if s.Narrative != nil {
			sentiment = s.Narrative.Sentiment
		}
		switch models.SentimentOrNeutral(sentiment) {
		case models.SentimentPositive:
			stats.Positive++
		case models.SentimentNegative:
			stats.Negative++
		case models.SentimentMixed:
			stats.Mixed++
		default:
			stats.Neutral++
		}
		if s.Financials != nil && s.Financials.PriceChange7d != nil {
			changeSum += *s.Financials.PriceChange7d
			changeCount++
		}
	}
	if changeCount > 0 {
		stats.AvgChange7d = changeSum / float64(changeCount)
	}
	return stats
}

// initData loads init data through the shared query cache. The days
// parameter defaults to the standard window.
func (h *Handler) initData(c *gin.Context) (*models.InitData, int, bool) {
	days := viewstate.DefaultTimeWindow
	if raw := c.Query("days"); raw != "" {
		parsed, err := viewstate.ParseTimeWindow(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be one of 7, 14, 30"})
			return nil, 0, false
		}
		days = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	data, err := query.Fetch(ctx, h.queries, query.NewKey("initData", days), func(ctx context.Context) (*models.InitData, error) {
		return h.backend.GetInitData(ctx, days)
	})
	if err != nil {
		h.log.Warn("loading init data failed", zap.Int("days", days), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return nil, 0, false
	}
	return data, days, true
}
