package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"sector-intel/components"
	"sector-intel/pages"
	"sector-intel/viewstate"
)

const (
	sectorNotFound = "Sector not found."
	sectorError    = "Failed to load sector data. Is the backend running?"
)

// Sector renders one sector. A plain request opens the page afresh; with
// timeWindow or signalType parameters the current page state is kept and
// the selection applied.
func (h *Handler) Sector(c *gin.Context) {
	id := c.Param("sectorId")
	s := h.session(c).SectorDetail()

	rawWindow, rawType := c.Query("timeWindow"), c.Query("signalType")
	if rawWindow == "" && rawType == "" {
		s.Open(id)
	} else {
		s.Show(id)
	}
	if rawWindow != "" {
		days, err := viewstate.ParseTimeWindow(rawWindow)
		if err == nil {
			err = s.SetTimeWindow(days)
		}
		h.ignored(err)
	}
	if rawType != "" {
		h.ignored(s.SetSignalType(rawType))
	}

	ctx, cancel := h.waitContext(c)
	defer cancel()
	view := s.Wait(ctx)

	status := http.StatusOK
	switch {
	case view.NotFound:
		status = http.StatusNotFound
	case view.Status == pages.StatusError:
		status = http.StatusBadGateway
	}
	h.render(c, status, "sector.html", h.sectorPage(view))
}

func (h *Handler) sectorPage(view pages.SectorDetailView) components.SectorPage {
	href := components.SectorHref(view.SectorID)
	page := components.SectorPage{
		SectorID:    view.SectorID,
		Href:        href,
		Title:       "Sector Detail",
		Loading:     view.Status == pages.StatusLoading,
		Fetching:    view.Fetching,
		TimeWindows: components.TimeWindowOptions(view.TimeWindow),
	}
	switch {
	case view.NotFound:
		page.Error = sectorNotFound
	case view.Status == pages.StatusError:
		page.Error = sectorError
	}

	if data := view.Data; data != nil && view.Status == pages.StatusReady {
		header := components.SectorHeader(data.Sector, data.Financials)
		page.Title = data.Sector.Name
		page.Ticker = data.Sector.ETFTicker
		page.Header = &header
		page.Narrative = components.Narrative(data.Narrative)
		page.Tabs = components.SignalTabs(data.SignalCountsByType, view.SignalType, h.catalog)
		page.Signals = components.SignalCards(data.Signals, h.catalog, h.now())
	}

	if view.Status == pages.StatusLoading {
		q := url.Values{
			"timeWindow": {strconv.Itoa(view.TimeWindow)},
			"signalType": {view.SignalType},
		}
		page.RefreshSeconds = h.refreshSeconds
		page.RefreshURL = href + "?" + q.Encode()
	}
	return page
}
