package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"stockpilot/internal/hub"
	"stockpilot/internal/logger"
)

// streamEvents serves the long-lived push stream. Each subscriber gets a
// `connected` event with its id, then every hub event published while it is
// connected. Keepalive markers are written as SSE comments so that proxies
// keep the connection open without waking event listeners on the client.
func (s *Server) streamEvents(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	sub := s.deps.Hub.Subscribe()
	defer s.deps.Hub.Unsubscribe(sub.ID)

	s.logger.DebugCtx(ctx, "stream client connected",
		logger.Field{Key: "subscriber_id", Value: sub.ID},
		logger.Field{Key: "remote", Value: c.RealIP()})

	connected := hub.Event{
		Type: "connected",
		Time: time.Now(),
		Data: map[string]any{"subscriber_id": sub.ID},
	}
	if err := writeEvent(resp, connected); err != nil {
		return nil
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			s.logger.DebugCtx(ctx, "stream client disconnected",
				logger.Field{Key: "subscriber_id", Value: sub.ID})
			return nil

		case e, open := <-sub.C:
			if !open {
				return nil
			}
			if e.Type == hub.EventKeepalive {
				if _, err := fmt.Fprint(resp, ": keepalive\n\n"); err != nil {
					return nil
				}
			} else if err := writeEvent(resp, e); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e hub.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", e.Type); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
