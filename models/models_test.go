package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalTypeLabel(t *testing.T) {
	assert.Equal(t, "M&A", SignalMergers.Label())
	assert.Equal(t, "ESG", SignalESG.Label())
	assert.Equal(t, "supply_chain", SignalType("supply_chain").Label())
	assert.False(t, SignalType("supply_chain").Known())
}

func TestSignalTypeRank(t *testing.T) {
	assert.Equal(t, 0, SignalRegulatory.Rank())
	assert.Equal(t, 7, SignalNeutral.Rank())
	assert.Equal(t, len(AllSignalTypes), SignalType("other").Rank())
}

func TestSentimentStyle(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		style := SentimentNegative.Style()
		assert.Equal(t, "bg-red-500", style.DotColor)
		assert.Equal(t, "Negative", style.Label)
	})

	t.Run("unknown keeps literal code", func(t *testing.T) {
		style := Sentiment("bullish").Style()
		assert.Equal(t, "bg-gray-400", style.DotColor)
		assert.Equal(t, "bullish", style.Label)
	})

	t.Run("absent defaults to neutral", func(t *testing.T) {
		assert.Equal(t, SentimentNeutral, SentimentOrNeutral(nil))
		empty := ""
		assert.Equal(t, SentimentNeutral, SentimentOrNeutral(&empty))
		assert.Equal(t, "Neutral", Sentiment("").Style().Label)
	})
}

func TestDecodeToleratesUnknownCodesAndNulls(t *testing.T) {
	body := `{
		"sector": {"id": "tech", "name": "Technology", "gics_code": "45", "etf_ticker": "XLK", "description": null, "created_at": "2024-05-01T00:00:00"},
		"financials": null,
		"narrative": {"id": "n1", "sector_id": "tech", "summary_short": null, "summary_full": null, "key_themes": null, "sentiment": null, "created_at": "2024-05-01T00:00:00"},
		"signals": [{"id": "s1", "sector_id": "tech", "article_id": "a1", "signal_type": "supply_chain", "sentiment": "bullish", "summary": null, "ir_relevance": 0.4, "created_at": "2024-05-01T00:00:00", "sector_articles": null}],
		"signal_counts_by_type": {"supply_chain": 1}
	}`

	var detail SectorDetail
	require.NoError(t, json.Unmarshal([]byte(body), &detail))

	assert.Nil(t, detail.Financials)
	require.NotNil(t, detail.Narrative)
	assert.Nil(t, detail.Narrative.KeyThemes)
	require.Len(t, detail.Signals, 1)
	assert.Equal(t, SignalType("supply_chain"), detail.Signals[0].SignalType)
	assert.Nil(t, detail.Signals[0].Article)
	assert.Equal(t, 1, detail.SignalCountsByType["supply_chain"])
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(map[string]string{
		"regulatory":   "Government regulation",
		"supply_chain": "Logistics disruption",
	})

	assert.Equal(t, "Government regulation", c.Description(SignalRegulatory))
	assert.Equal(t, "supply_chain", c.Label("supply_chain"))
	assert.True(t, c.Known("supply_chain"))
	assert.False(t, c.Known("made_up"))
	assert.True(t, c.Filters("supply_chain"))
	assert.True(t, c.Filters(SignalESG))
	assert.False(t, c.Filters(SignalNeutral))
	assert.False(t, c.Filters("made_up"))

	filterable := c.Filterable()
	assert.NotContains(t, filterable, SignalNeutral)
	assert.Equal(t, SignalRegulatory, filterable[0])
	assert.Equal(t, SignalType("supply_chain"), filterable[len(filterable)-1])

	var zero *Catalog
	assert.Len(t, zero.Filterable(), 7)
	assert.Empty(t, zero.Description(SignalESG))
}
