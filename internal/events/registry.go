package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// session
	"session.started":  {},
	"session.finished": {},
	"session.aborted":  {},

	// phase
	"phase.started":   {},
	"phase.completed": {},

	// stimulus
	"stimulus.onset":  {},
	"stimulus.offset": {},

	// response
	"response.boundary": {},

	// clip
	"clip.loading":     {},
	"clip.load_failed": {},

	// order
	"order.resolved": {},
	"order.fallback": {},

	// log
	"log.saved":        {},
	"log.flush_failed": {},
	"mirror.failed":    {},

	// remote control
	"control.received": {},

	// device
	"device.connected":    {},
	"device.disconnected": {},
	"device.error":        {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
