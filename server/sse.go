package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// SSE event names.
const (
	EventFragment = "fragment"
	EventDone     = "done"
	EventError    = "error"
)

// Fragment is the payload of a fragment event.
type Fragment struct {
	Text string `json:"text"`
}

// streamError is the payload of an error event.
type streamError struct {
	Error string `json:"error"`
}

// eventStream writes server-sent events. Headers go out with the first
// event so that failures before any output can still use a plain status.
type eventStream struct {
	c       echo.Context
	started bool
	err     error
}

func newEventStream(c echo.Context) *eventStream {
	return &eventStream{c: c}
}

func (s *eventStream) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.c.Response().WriteHeader(http.StatusOK)
}

// Send writes one event. Write failures are kept and later sends become no-ops.
func (s *eventStream) Send(event string, payload any) {
	if s.err != nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.err = err
		return
	}
	s.start()
	w := s.c.Response()
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		s.err = err
		return
	}
	w.Flush()
}

// Fragment forwards cumulative text.
func (s *eventStream) Fragment(text string) {
	s.Send(EventFragment, Fragment{Text: text})
}

// Finish ends the stream with a done event, or reports err. Before the
// stream started, err is returned for the regular error handler instead.
func (s *eventStream) Finish(result any, err error) error {
	if err != nil {
		if !s.started {
			return err
		}
		s.Send(EventError, streamError{Error: err.Error()})
		return nil
	}
	s.Send(EventDone, result)
	return nil
}
