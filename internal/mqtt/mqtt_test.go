package mqtt

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
	"github.com/AaronLay10/DynamicSeg/internal/events"
)

func TestMain(m *testing.M) {
	events.SetOutput(nil)
	os.Exit(m.Run())
}

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	err      error
	block    chan struct{}
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return p.err
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m *mockMessage) Duplicate() bool   { return false }
func (m *mockMessage) Qos() byte         { return 1 }
func (m *mockMessage) Retained() bool    { return false }
func (m *mockMessage) Topic() string     { return m.topic }
func (m *mockMessage) MessageID() uint16 { return 0 }
func (m *mockMessage) Payload() []byte   { return m.payload }
func (m *mockMessage) Ack()              {}

type fakeSubscriber struct {
	handlers map[string]paho.MessageHandler
}

func (s *fakeSubscriber) Subscribe(topic string, handler paho.MessageHandler) error {
	if s.handlers == nil {
		s.handlers = make(map[string]paho.MessageHandler)
	}
	s.handlers[topic] = handler
	return nil
}

func (s *fakeSubscriber) deliver(topic, payload string) {
	if h, ok := s.handlers[topic]; ok {
		h(nil, &mockMessage{topic: topic, payload: []byte(payload)})
	}
}

func TestMarkerMirrorPublishesRowsInOrder(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMarkerMirror(pub, "lab/markers", "p12-2024")

	rows := []eventlog.Row{
		{Kind: eventlog.KindOnset, Label: "MovieViewing_Passive_Movie_start_clip01", Onset: 3.0, TaskClock: 3.0, Epoch: 1.7e9},
		{Kind: eventlog.KindOffset, Label: "MovieViewing_Passive_Movie_clip01_offset", Onset: 8.0, TaskClock: 8.0, Epoch: 1.7e9 + 5},
	}
	for _, r := range rows {
		if err := m.AppendRow(r); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	m.Close()

	if len(pub.payloads) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(pub.payloads))
	}
	for i, payload := range pub.payloads {
		if pub.topics[i] != "lab/markers/p12-2024" {
			t.Errorf("unexpected topic %q", pub.topics[i])
		}
		var got Marker
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if got.Seq != i || got.SectionName != rows[i].Label || got.Kind != string(rows[i].Kind) || got.Onset != rows[i].Onset {
			t.Errorf("marker %d: unexpected %+v", i, got)
		}
	}
}

func TestMarkerMirrorDropsWhenQueueFull(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	m := NewMarkerMirror(pub, "lab", "s")

	var dropped int
	for i := 0; i < markerQueueSize+10; i++ {
		if err := m.AppendRow(eventlog.Row{Label: "x"}); errors.Is(err, ErrMarkerQueueFull) {
			dropped++
		}
	}
	if dropped == 0 {
		t.Error("expected some markers to be dropped while the publisher is stalled")
	}

	close(pub.block)
	m.Close()
}

func TestMarkerMirrorClose(t *testing.T) {
	m := NewMarkerMirror(&fakePublisher{}, "lab", "s")
	m.Close()
	m.Close()

	if err := m.AppendRow(eventlog.Row{Label: "late"}); err == nil {
		t.Error("expected error appending after Close")
	}
}

func TestMarkerMirrorPublishFailureDoesNotStop(t *testing.T) {
	pub := &fakePublisher{err: &PublishTimeoutError{Topic: "lab/s"}}
	m := NewMarkerMirror(pub, "lab", "s")
	for i := 0; i < 3; i++ {
		if err := m.AppendRow(eventlog.Row{Label: "x"}); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	m.Close()

	if len(pub.payloads) != 3 {
		t.Errorf("expected every marker to be attempted, got %d", len(pub.payloads))
	}
}

func TestListenForAbort(t *testing.T) {
	tests := []struct {
		payload string
		abort   bool
	}{
		{"abort", true},
		{" ABORT\n", true},
		{`{"command": "abort"}`, true},
		{`{"command": "pause"}`, false},
		{"status", false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			sub := &fakeSubscriber{}
			aborted := false
			if err := ListenForAbort(sub, "lab/markers", "s1", func() { aborted = true }); err != nil {
				t.Fatalf("ListenForAbort: %v", err)
			}

			sub.deliver(ControlTopic("lab/markers", "s1"), tt.payload)
			if aborted != tt.abort {
				t.Errorf("payload %q: aborted=%v, want %v", tt.payload, aborted, tt.abort)
			}
		})
	}
}

func TestTimeoutErrors(t *testing.T) {
	if (&PublishTimeoutError{Topic: "a/b"}).Error() != "mqtt publish timeout: a/b" {
		t.Error("unexpected publish timeout message")
	}
	if (&ConnectTimeoutError{}).Error() != "mqtt connect timeout" {
		t.Error("unexpected connect timeout message")
	}
}

func TestBrokerURL(t *testing.T) {
	t.Setenv("MQTT_URL", "")
	if BrokerURL() != "tcp://localhost:1883" {
		t.Errorf("unexpected default %q", BrokerURL())
	}
	t.Setenv("MQTT_URL", "tcp://10.0.0.5:1883")
	if BrokerURL() != "tcp://10.0.0.5:1883" {
		t.Errorf("unexpected override %q", BrokerURL())
	}
}
