package mqtt

import (
	"encoding/json"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/DynamicSeg/internal/events"
)

// Subscriber is the part of Client the control listener needs.
type Subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// ControlTopic returns the topic operators publish commands to.
func ControlTopic(prefix, session string) string {
	return prefix + "/" + session + "/control"
}

// ListenForAbort subscribes to the session's control topic and calls abort
// when an "abort" command arrives. The payload is either the bare word or
// {"command": "abort"}. Abort takes effect at the next frame's poll.
func ListenForAbort(sub Subscriber, prefix, session string, abort func()) error {
	topic := ControlTopic(prefix, session)
	return sub.Subscribe(topic, func(_ paho.Client, msg paho.Message) {
		command := parseCommand(msg.Payload())
		events.Emit("info", "control.received", "", map[string]interface{}{
			"topic":   msg.Topic(),
			"command": command,
		})
		if command == "abort" {
			abort()
		}
	})
}

func parseCommand(payload []byte) string {
	var body struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Command != "" {
		return strings.ToLower(strings.TrimSpace(body.Command))
	}
	return strings.ToLower(strings.TrimSpace(string(payload)))
}
