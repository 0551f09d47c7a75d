package feed

import (
	"io"

	sse "github.com/tmaxmax/go-sse"
)

// maxEventSize bounds a single event; a "cfds" snapshot of a busy maker is large.
const maxEventSize = 8 << 20

// Event is one dispatched server-sent event.
type Event struct {
	Name string // "message" when the server sent no event field
	Data []byte
	ID   string
}

// ReadEvents reads a text/event-stream from r and hands every event that carries
// data to handle. It returns nil at EOF.
func ReadEvents(r io.Reader, handle Handler) error {
	for ev, err := range sse.Read(r, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
		if err != nil {
			return err
		}
		if ev.Data == "" {
			continue
		}
		name := ev.Type
		if name == "" {
			name = "message"
		}
		handle(Event{Name: name, Data: []byte(ev.Data), ID: ev.LastEventID})
	}
	return nil
}
