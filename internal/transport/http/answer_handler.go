package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/domain"
)

func (s *Server) recordAnswer(c *gin.Context) {
	var req app.AnswerInput
	if !bindJSON(c, &req) {
		return
	}
	rec, err := s.submissions.RecordAnswer(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) meetLeaderboard(c *gin.Context) {
	lb, err := s.submissions.Leaderboard(c.Request.Context(), c.Param("meetId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

func (s *Server) cumulativeLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, domain.NewValidationError("invalid limit",
				domain.FieldError{Field: "limit", Message: "must be a positive integer"}))
			return
		}
		limit = n
	}
	entries, err := s.submissions.Cumulative(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) myStats(c *gin.Context) {
	view, err := s.submissions.MyStats(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
