package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leapstack-labs/analyst/internal/notifier"
)

// handleJobEvents streams job progress to the client as server-sent
// events. The stream ends when the job reaches a terminal status or the
// client disconnects.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before replaying the current status so no event falls
	// into the gap.
	ch := s.notifier.Subscribe(job.ID)
	defer s.notifier.Unsubscribe(job.ID, ch)

	writeEvent(w, notifier.Event{
		Type:   notifier.EventStatus,
		JobID:  job.ID,
		Time:   time.Now(),
		Status: job.Status,
	})
	flusher.Flush()

	if job.Status.Terminal() {
		writeEvent(w, notifier.Event{
			Type:   notifier.EventCompletion,
			JobID:  job.ID,
			Time:   time.Now(),
			Status: job.Status,
			Result: job.Result,
			Error:  job.Error,
		})
		flusher.Flush()
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
			if ev.Type == notifier.EventCompletion || ev.Type == notifier.EventError {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev notifier.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}
