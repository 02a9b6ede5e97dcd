package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sector-intel/components"
	"sector-intel/format"
	"sector-intel/models"
	"sector-intel/pages"
	"sector-intel/query"
	"sector-intel/viewstate"
)

const dashboardError = "Failed to load dashboard data. Is the backend running?"

// Dashboard renders the sector overview. The timeWindow, signalType and
// viewType query parameters are applied as user selections first; invalid
// values are ignored.
func (h *Handler) Dashboard(c *gin.Context) {
	d := h.session(c).Dashboard()

	if raw := c.Query("timeWindow"); raw != "" {
		days, err := viewstate.ParseTimeWindow(raw)
		if err == nil {
			err = d.SetTimeWindow(days)
		}
		h.ignored(err)
	}
	if raw := c.Query("signalType"); raw != "" {
		h.ignored(d.SetSignalType(raw))
	}
	if raw := c.Query("viewType"); raw != "" {
		h.ignored(d.SetViewType(viewstate.ViewType(raw)))
	}

	ctx, cancel := h.waitContext(c)
	defer cancel()
	view := d.Wait(ctx)

	status := http.StatusOK
	if view.Status == pages.StatusError {
		status = http.StatusBadGateway
	}
	h.render(c, status, "dashboard.html", h.dashboardPage(view))
}

func (h *Handler) dashboardPage(view pages.DashboardView) components.DashboardPage {
	page := components.DashboardPage{
		LastUpdated: "Never",
		Actions: []components.Action{
			pipelineAction(view.Pipeline),
			financialsAction(view.Financials),
		},
		Filters:  components.FilterControls(view.State, h.catalog),
		Loading:  view.Status == pages.StatusLoading,
		Fetching: view.Fetching,
	}
	if view.Status == pages.StatusError {
		page.Error = dashboardError
	}
	if data := view.Data; data != nil {
		page.LastUpdated = format.RelativeTimePtr(data.LastPipelineRun, h.now())
		page.Cards = components.SectorCards(data.Sectors)
		page.Rows = components.SectorRows(data.Sectors)
	}
	if view.Busy() {
		page.RefreshSeconds = h.refreshSeconds
		page.RefreshURL = "/"
	}
	return page
}

func pipelineAction(st query.MutationState[*models.PipelineRunResult]) components.Action {
	a := components.Action{Path: "/pipeline/run", Label: "Refresh Data"}
	switch st.Status {
	case query.MutationPending:
		a.Label = "Running..."
		a.Pending = true
	case query.MutationSuccess:
		a.Result = &components.Banner{
			Text:  "Pipeline completed in " + format.Elapsed(st.Data.ElapsedSeconds),
			Class: "text-green-300",
		}
	case query.MutationError:
		a.Result = &components.Banner{Text: "Pipeline failed", Class: "text-red-300"}
	}
	return a
}

func financialsAction(st query.MutationState[*models.FinancialsRefresh]) components.Action {
	a := components.Action{Path: "/pipeline/financials", Label: "Refresh Financials"}
	switch st.Status {
	case query.MutationPending:
		a.Label = "Refreshing..."
		a.Pending = true
	case query.MutationSuccess:
		a.Result = &components.Banner{
			Text:  fmt.Sprintf("Updated %d sectors", st.Data.FinancialsUpdated),
			Class: "text-green-300",
		}
	case query.MutationError:
		a.Result = &components.Banner{Text: "Financials refresh failed", Class: "text-red-300"}
	}
	return a
}

func (h *Handler) ignored(err error) {
	if err != nil {
		h.log.Debug("ignoring selection", zap.Error(err))
	}
}
