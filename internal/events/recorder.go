// Package events records scenario engine lifecycle events for presentation
// layers that want to observe a run in progress.
package events

import (
	"encoding/json"
	"io"
	"log"
	"sync"

	"github.com/pathprobehq/pathprobe/pkg/types"
)

type Recorder interface {
	Record(event types.Event)
}

type NoopRecorder struct{}

func (NoopRecorder) Record(event types.Event) {}

// LogRecorder writes events to a standard logger.
type LogRecorder struct {
	Logger *log.Logger
}

func (r LogRecorder) Record(event types.Event) {
	if r.Logger == nil {
		return
	}
	if event.Role != "" {
		r.Logger.Printf("scenario %s: %s (%s)", event.Scenario, event.Type, event.Role)
		return
	}
	r.Logger.Printf("scenario %s: %s", event.Scenario, event.Type)
}

// StreamRecorder appends events as JSON lines, leaving a machine-readable
// trace of the run next to its result. Encoding failures are dropped; event
// recording must never disturb the run itself.
type StreamRecorder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewStreamRecorder(w io.Writer) *StreamRecorder {
	return &StreamRecorder{enc: json.NewEncoder(w)}
}

func (r *StreamRecorder) Record(event types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(event)
}

type Multi struct {
	recorders []Recorder
}

func NewMulti(recorders ...Recorder) Multi {
	return Multi{recorders: recorders}
}

func (m Multi) Record(event types.Event) {
	for _, rec := range m.recorders {
		if rec != nil {
			rec.Record(event)
		}
	}
}
