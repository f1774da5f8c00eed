package controllers

import (
	"net/http"
	"time"

	"rightsnet/app/metrics"
)

// Presence reports which users have an open realtime session.
type Presence interface {
	Online() []int
}

// EventStats reports realtime fan-out counters.
type EventStats interface {
	Published() uint64
	Dropped() uint64
}

// SystemController serves health, metrics and presence
type SystemController struct {
	metrics  *metrics.Registry
	presence Presence
	events   EventStats
	started  time.Time
}

// NewSystemController creates a new SystemController
func NewSystemController(reg *metrics.Registry, presence Presence, events EventStats) *SystemController {
	return &SystemController{metrics: reg, presence: presence, events: events, started: time.Now()}
}

// Health reports that the server is up
func (sc *SystemController) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(sc.started).Round(time.Second).String(),
	})
}

// Metrics returns per-route latency and realtime counters
func (sc *SystemController) Metrics(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"routes": sc.metrics.Snapshot()}
	if sc.events != nil {
		body["realtime"] = map[string]uint64{
			"published": sc.events.Published(),
			"dropped":   sc.events.Dropped(),
		}
	}
	sendJSON(w, http.StatusOK, body)
}

// Presence lists the ids of online users
func (sc *SystemController) Presence(w http.ResponseWriter, r *http.Request) {
	online := []int{}
	if sc.presence != nil {
		online = sc.presence.Online()
	}
	sendJSON(w, http.StatusOK, map[string]interface{}{"online": online})
}
