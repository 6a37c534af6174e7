package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/hvac-controller/internal/history"
	"github.com/sweeney/hvac-controller/internal/logic"
	"github.com/sweeney/hvac-controller/internal/status"
)

const (
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
	maxHistory     = 1000
)

func (s *Server) handleIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := renderHTML(c.Writer, s.tracker.Snapshot()); err != nil {
		s.log.Errorw("render status page", "err", err)
	}
}

func (s *Server) handleJSON(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", status.FormatJSON(s.tracker.Snapshot()))
}

func (s *Server) handleSettings(c *gin.Context) {
	snap := s.tracker.Snapshot()
	c.Data(http.StatusOK, "application/json", status.FormatSettings(snap.Controller, snap.Settings))
}

func (s *Server) handlePushData(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", status.FormatPushData(s.tracker.Snapshot().Controller))
}

// setRequest accepts form fields or a JSON body.
type setRequest struct {
	Name  string `form:"name" json:"name" binding:"required"`
	Value *int   `form:"value" json:"value" binding:"required"`
}

func (s *Server) handleSet(c *gin.Context) {
	if s.cmd == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands disabled"})
		return
	}
	var req setRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "need name and integer value"})
		return
	}
	name := strings.TrimSpace(req.Name)

	err := s.cmd.Submit(c.Request.Context(), name, *req.Value)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"name": name, "value": *req.Value})
	case errors.Is(err, logic.ErrUnknownParameter):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.Errorw("apply command", "name", name, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "command not applied"})
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history disabled"})
		return
	}
	var (
		from, to time.Time
		err      error
	)
	if q := c.Query("from"); q != "" {
		if from, err = parseQueryTime(q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' time; use RFC3339 or YYYY-MM-DD"})
			return
		}
	}
	if q := c.Query("to"); q != "" {
		if to, err = parseQueryTime(q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' time; use RFC3339 or YYYY-MM-DD"})
			return
		}
		if !strings.ContainsAny(q, "T ") {
			to = to.Add(24*time.Hour - time.Second)
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be <= 'to'"})
		return
	}
	limit := history.DefaultLimit
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > maxHistory {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be 1..%d", maxHistory)})
			return
		}
		limit = n
	}

	events, err := s.history.List(c.Request.Context(), from, to, limit)
	if err != nil {
		s.log.Errorw("list history", "err", err, "from", from, "to", to)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
