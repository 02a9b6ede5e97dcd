// Package components turns fetched data into flat view models for the HTML
// templates. Nothing here touches the network or the view-state store.
package components

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"sector-intel/format"
	"sector-intel/models"
	"sector-intel/viewstate"
)

const (
	NoSectors         = "No sectors available."
	NoCardNarrative   = "No narrative available"
	NoNarrative       = "No narrative available. Run the pipeline to generate one."
	NoNarrativeText   = "No narrative text available."
	NoSignals         = "No signals found for the selected filters."
	UntitledSignal    = "Untitled"
	AllSignalTypesOpt = "All Signal Types"
)

// SectorHref is the detail page of a sector.
func SectorHref(id string) string {
	return "/sector/" + url.PathEscape(id)
}

type Badge struct {
	DotColor  string
	TextColor string
	Label     string
}

// SentimentBadge renders a nullable sentiment, defaulting to neutral.
func SentimentBadge(sentiment *string) Badge {
	style := models.SentimentOrNeutral(sentiment).Style()
	return Badge{DotColor: style.DotColor, TextColor: style.TextColor, Label: style.Label}
}

// SortedBySignalCount returns a copy of sectors ordered by descending
// signal count. Ties keep their input order.
func SortedBySignalCount(sectors []models.SectorWithMetrics) []models.SectorWithMetrics {
	sorted := make([]models.SectorWithMetrics, len(sectors))
	copy(sorted, sectors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SignalCount > sorted[j].SignalCount
	})
	return sorted
}

type SectorCard struct {
	ID          string
	Name        string
	Ticker      string
	Href        string
	Change7d    format.PerformanceText
	SignalCount int
	Sentiment   Badge
	Summary     string
}

func SectorCards(sectors []models.SectorWithMetrics) []SectorCard {
	sorted := SortedBySignalCount(sectors)
	cards := make([]SectorCard, 0, len(sorted))
	for _, s := range sorted {
		var fin models.SectorFinancials
		if s.Financials != nil {
			fin = *s.Financials
		}
		card := SectorCard{
			ID:          s.ID,
			Name:        s.Name,
			Ticker:      s.ETFTicker,
			Href:        SectorHref(s.ID),
			Change7d:    format.Performance(fin.PriceChange7d),
			SignalCount: s.SignalCount,
			Summary:     NoCardNarrative,
		}
		var sentiment *string
		if s.Narrative != nil {
			sentiment = s.Narrative.Sentiment
			if s.Narrative.SummaryShort != nil && *s.Narrative.SummaryShort != "" {
				card.Summary = *s.Narrative.SummaryShort
			}
		}
		card.Sentiment = SentimentBadge(sentiment)
		cards = append(cards, card)
	}
	return cards
}

type SectorRow struct {
	ID          string
	Name        string
	Ticker      string
	Href        string
	Sentiment   Badge
	Change7d    format.PerformanceText
	Change30d   format.PerformanceText
	ChangeYTD   format.PerformanceText
	VsSPY       format.PerformanceText
	SignalCount int
}

// SectorRows builds the list view in the same order as SectorCards.
func SectorRows(sectors []models.SectorWithMetrics) []SectorRow {
	sorted := SortedBySignalCount(sectors)
	rows := make([]SectorRow, 0, len(sorted))
	for _, s := range sorted {
		var fin models.SectorFinancials
		if s.Financials != nil {
			fin = *s.Financials
		}
		var sentiment *string
		if s.Narrative != nil {
			sentiment = s.Narrative.Sentiment
		}
		rows = append(rows, SectorRow{
			ID:          s.ID,
			Name:        s.Name,
			Ticker:      s.ETFTicker,
			Href:        SectorHref(s.ID),
			Sentiment:   SentimentBadge(sentiment),
			Change7d:    format.Performance(fin.PriceChange7d),
			Change30d:   format.Performance(fin.PriceChange30d),
			ChangeYTD:   format.Performance(fin.PriceChangeYTD),
			VsSPY:       format.Performance(fin.VsSPY7d),
			SignalCount: s.SignalCount,
		})
	}
	return rows
}

type Stat struct {
	Label string
	Value format.PerformanceText
}

type Header struct {
	Name   string
	Ticker string
	Stats  []Stat
}

// SectorHeader summarises a sector's performance. financials may be nil.
func SectorHeader(sector models.Sector, financials *models.SectorFinancials) Header {
	var fin models.SectorFinancials
	if financials != nil {
		fin = *financials
	}
	return Header{
		Name:   sector.Name,
		Ticker: sector.ETFTicker,
		Stats: []Stat{
			{Label: "7D Change", Value: format.Performance(fin.PriceChange7d)},
			{Label: "30D Change", Value: format.Performance(fin.PriceChange30d)},
			{Label: "YTD", Value: format.Performance(fin.PriceChangeYTD)},
			{Label: "vs S&P 500", Value: format.Performance(fin.VsSPY7d)},
		},
	}
}

type NarrativeView struct {
	Themes        []string
	Sentiment     Badge
	Paragraphs    []string
	Fallback      string
	TalkingPoints []string
}

// Narrative returns nil when there is no narrative; the template then shows
// the empty state.
func Narrative(n *models.SectorNarrative) *NarrativeView {
	if n == nil {
		return nil
	}
	view := &NarrativeView{
		Themes:        n.KeyThemes,
		Sentiment:     SentimentBadge(n.Sentiment),
		TalkingPoints: n.IRTalkingPoints,
	}
	if n.SummaryFull != nil {
		for _, p := range strings.Split(*n.SummaryFull, "\n\n") {
			if p != "" {
				view.Paragraphs = append(view.Paragraphs, p)
			}
		}
	}
	if len(view.Paragraphs) == 0 {
		view.Fallback = NoNarrativeText
		if n.SummaryShort != nil {
			view.Fallback = *n.SummaryShort
		}
	}
	return view
}

type SignalCard struct {
	ID              string
	Title           string
	URL             string
	Source          string
	When            string
	TypeLabel       string
	TypeDescription string
	Sentiment       Badge
	Summary         string
}

// SignalCards keeps the server's ordering.
func SignalCards(signals []models.Signal, catalog *models.Catalog, now time.Time) []SignalCard {
	cards := make([]SignalCard, 0, len(signals))
	for _, s := range signals {
		card := SignalCard{
			ID:              s.ID,
			Title:           UntitledSignal,
			TypeLabel:       catalog.Label(s.SignalType),
			TypeDescription: catalog.Description(s.SignalType),
			Sentiment:       SentimentBadge(s.Sentiment),
		}
		if s.Summary != nil {
			card.Summary = *s.Summary
		}

		when := s.CreatedAt
		if a := s.Article; a != nil {
			if a.Title != nil {
				card.Title = *a.Title
			}
			if a.URL != nil {
				card.URL = *a.URL
			}
			if a.Source != nil {
				card.Source = *a.Source
			}
			if a.PublishedAt != nil {
				when = *a.PublishedAt
			}
		}
		card.When = format.RelativeTimeString(when, now)
		cards = append(cards, card)
	}
	return cards
}

type Tab struct {
	Code        string
	Label       string
	Description string
	Count       int
	Active      bool
}

// SignalTabs lists "All" with the total, then every type with signals:
// built-in types in their canonical order, unknown codes after them in
// lexical order.
func SignalTabs(counts map[string]int, active string, catalog *models.Catalog) []Tab {
	total := 0
	codes := make([]models.SignalType, 0, len(counts))
	for code, n := range counts {
		total += n
		if n > 0 {
			codes = append(codes, models.SignalType(code))
		}
	}
	sort.Slice(codes, func(i, j int) bool {
		ri, rj := codes[i].Rank(), codes[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return codes[i] < codes[j]
	})

	tabs := []Tab{{
		Code:   viewstate.AllSignalTypes,
		Label:  "All",
		Count:  total,
		Active: active == viewstate.AllSignalTypes,
	}}
	for _, code := range codes {
		tabs = append(tabs, Tab{
			Code:        string(code),
			Label:       catalog.Label(code),
			Description: catalog.Description(code),
			Count:       counts[string(code)],
			Active:      active == string(code),
		})
	}
	return tabs
}

type Option struct {
	Value    string
	Label    string
	Title    string
	Selected bool
}

type FilterControlsView struct {
	TimeWindows []Option
	SignalTypes []Option
	ViewType    viewstate.ViewType
}

func (f FilterControlsView) Grid() bool { return f.ViewType != viewstate.ViewList }

// TimeWindowOptions lists the selectable windows as "Last N days".
func TimeWindowOptions(selected int) []Option {
	opts := make([]Option, 0, len(viewstate.TimeWindowOptions))
	for _, days := range viewstate.TimeWindowOptions {
		opts = append(opts, Option{
			Value:    strconv.Itoa(days),
			Label:    "Last " + strconv.Itoa(days) + " days",
			Selected: days == selected,
		})
	}
	return opts
}

func FilterControls(state viewstate.ViewState, catalog *models.Catalog) FilterControlsView {
	types := []Option{{
		Value:    viewstate.AllSignalTypes,
		Label:    AllSignalTypesOpt,
		Selected: state.SignalType == viewstate.AllSignalTypes,
	}}
	for _, t := range catalog.Filterable() {
		types = append(types, Option{
			Value:    string(t),
			Label:    catalog.Label(t),
			Title:    catalog.Description(t),
			Selected: state.SignalType == string(t),
		})
	}
	return FilterControlsView{
		TimeWindows: TimeWindowOptions(state.TimeWindow),
		SignalTypes: types,
		ViewType:    state.ViewType,
	}
}
