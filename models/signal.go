package models

// SignalType classifies a detected signal. Backends may add codes at any
// time, so values outside the known set are kept as-is.
type SignalType string

const (
	SignalRegulatory       SignalType = "regulatory"
	SignalAnalystSentiment SignalType = "analyst_sentiment"
	SignalEarningsTrend    SignalType = "earnings_trend"
	SignalMergers          SignalType = "m_and_a"
	SignalCompetitive      SignalType = "competitive"
	SignalMacroEconomic    SignalType = "macro_economic"
	SignalESG              SignalType = "esg"
	SignalNeutral          SignalType = "neutral"
)

// AllSignalTypes is the canonical display order.
var AllSignalTypes = []SignalType{
	SignalRegulatory,
	SignalAnalystSentiment,
	SignalEarningsTrend,
	SignalMergers,
	SignalCompetitive,
	SignalMacroEconomic,
	SignalESG,
	SignalNeutral,
}

var signalTypeLabels = map[SignalType]string{
	SignalRegulatory:       "Regulatory",
	SignalAnalystSentiment: "Analyst Sentiment",
	SignalEarningsTrend:    "Earnings Trend",
	SignalMergers:          "M&A",
	SignalCompetitive:      "Competitive",
	SignalMacroEconomic:    "Macro Economic",
	SignalESG:              "ESG",
	SignalNeutral:          "Neutral",
}

// Known reports whether t is one of the built-in signal types.
func (t SignalType) Known() bool {
	_, ok := signalTypeLabels[t]
	return ok
}

// Label returns the display label, or the literal code for unknown types.
func (t SignalType) Label() string {
	if label, ok := signalTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Rank is the position of t in AllSignalTypes, or len(AllSignalTypes) for
// unknown codes.
func (t SignalType) Rank() int {
	for i, known := range AllSignalTypes {
		if known == t {
			return i
		}
	}
	return len(AllSignalTypes)
}

// Sentiment is the direction of a signal or narrative.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// SentimentStyle holds the CSS classes and label used to render a sentiment.
type SentimentStyle struct {
	DotColor  string
	TextColor string
	Label     string
}

var sentimentStyles = map[Sentiment]SentimentStyle{
	SentimentPositive: {DotColor: "bg-green-500", TextColor: "text-green-700", Label: "Positive"},
	SentimentNegative: {DotColor: "bg-red-500", TextColor: "text-red-700", Label: "Negative"},
	SentimentNeutral:  {DotColor: "bg-gray-400", TextColor: "text-gray-600", Label: "Neutral"},
	SentimentMixed:    {DotColor: "bg-amber-500", TextColor: "text-amber-700", Label: "Mixed"},
}

// SentimentOrNeutral dereferences s, treating nil and empty as neutral.
func SentimentOrNeutral(s *string) Sentiment {
	if s == nil || *s == "" {
		return SentimentNeutral
	}
	return Sentiment(*s)
}

// Style returns the rendering style. Unknown sentiments get the neutral
// colors with their literal code as the label.
func (s Sentiment) Style() SentimentStyle {
	if s == "" {
		return sentimentStyles[SentimentNeutral]
	}
	if style, ok := sentimentStyles[s]; ok {
		return style
	}
	style := sentimentStyles[SentimentNeutral]
	style.Label = string(s)
	return style
}

// SignalArticle is the source article behind a signal.
type SignalArticle struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Source      *string `json:"source"`
	PublishedAt *string `json:"published_at"`
}

// Signal is one detected event tied to a sector.
type Signal struct {
	ID          string         `json:"id"`
	SectorID    string         `json:"sector_id"`
	ArticleID   string         `json:"article_id"`
	SignalType  SignalType     `json:"signal_type"`
	Sentiment   *string        `json:"sentiment"`
	Summary     *string        `json:"summary"`
	IRRelevance float64        `json:"ir_relevance"`
	CreatedAt   string         `json:"created_at"`
	Article     *SignalArticle `json:"sector_articles"`
}
