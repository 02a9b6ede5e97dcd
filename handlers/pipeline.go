package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunPipeline starts a pipeline run for the caller's dashboard and sends
// the browser back to it. A run already in progress is left alone.
func (h *Handler) RunPipeline(c *gin.Context) {
	h.session(c).Dashboard().RunPipeline(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) RefreshFinancials(c *gin.Context) {
	h.session(c).Dashboard().RefreshFinancials(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}
