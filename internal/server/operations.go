package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/D-Honoured1/Kamisoft-sub002/internal/audit/domain"
)

func (s *Server) HandleListAuditLogs(c *gin.Context) {
	var req auditdomain.ListAuditLogRequest
	if err := c.ShouldBindQuery(&req.Pagination); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Action = c.Query("action")
	req.TargetType = c.Query("target_type")
	req.TargetID = c.Query("target_id")

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) HandleGetRate(c *gin.Context) {
	base := strings.TrimSpace(c.Query("base"))
	quote := strings.TrimSpace(c.Query("quote"))
	if base == "" {
		base = s.cfg.BaseCurrency
	}
	if quote == "" {
		AbortWithError(c, newValidationError("quote", "invalid_quote", "invalid value"))
		return
	}

	rate, err := s.ratesSvc.Rate(c.Request.Context(), base, quote)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"base": base, "quote": quote, "rate": rate})
}

// HandleRunSweep triggers one expiry pass outside the schedule.
func (s *Server) HandleRunSweep(c *gin.Context) {
	result, err := s.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleSweepStats reports what the next sweep would touch.
func (s *Server) HandleSweepStats(c *gin.Context) {
	result, err := s.sweeper.Stats(c.Request.Context(), s.clock.Now())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
