package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"stockpilot/internal/chain"
	"stockpilot/internal/logger"
	"stockpilot/internal/schedule"
)

type scheduleRequest struct {
	TriggerTime string `json:"trigger_time"`
}

// updateSchedule writes the one-shot trigger and re-arms it.
func (s *Server) updateSchedule(c echo.Context) error {
	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	when, err := time.Parse(time.RFC3339, req.TriggerTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "trigger_time must be ISO-8601 with a UTC offset")
	}

	err = s.deps.ScheduleStore.Update(func(r *schedule.Record) error {
		r.Update = schedule.Entry{Enable: true, TriggerTime: when.Format(time.RFC3339)}
		return nil
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to persist schedule")
	}

	if err := s.deps.Trigger.Evaluate(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to arm trigger")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":       "scheduled",
		"trigger_time": when.Format(time.RFC3339),
	})
}

// scheduleStatus reports one armed flag per chain step. The chain arms as a
// whole, so the flags always agree; the shape mirrors what stream clients
// already consume.
func (s *Server) scheduleStatus(c echo.Context) error {
	armed := s.deps.Trigger.Armed()
	return c.JSON(http.StatusOK, map[string]bool{
		chain.StepStocksUpdate: armed,
		chain.StepEmailUpdate:  armed,
		chain.StepEmailSend:    armed,
	})
}

// runChain starts a chain run in the background. The response only means
// "accepted"; the outcome is observable through the event stream and logs.
func (s *Server) runChain(c echo.Context) error {
	if s.deps.Orchestrator.Running() {
		return echo.NewHTTPError(http.StatusConflict, "a chain run is already in progress")
	}

	go func() {
		if _, err := s.deps.Orchestrator.Run(s.baseCtx); err != nil {
			s.logger.Warn("background chain run did not start",
				logger.Field{Key: "error", Value: err.Error()})
		}
	}()

	return c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"})
}

// listStocks dumps the current portfolio so reconnecting stream clients can
// re-fetch authoritative state.
func (s *Server) listStocks(c echo.Context) error {
	p, err := s.deps.StockStore.Load()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load portfolio")
	}
	return c.JSON(http.StatusOK, p)
}
