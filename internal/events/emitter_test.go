package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestEmitRejectsUnknownEvent(t *testing.T) {
	Clear()
	if _, err := Emit("info", "puzzle.solved", "", nil); err == nil {
		t.Error("expected error for unregistered event name")
	}
	if len(Snapshot()) != 0 {
		t.Error("rejected events must not be recorded")
	}
}

func TestEmitWritesJSONLine(t *testing.T) {
	Clear()
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	b, err := Emit("warn", "order.fallback", "using default order", map[string]interface{}{"order": "[(0, 0)]"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	line := strings.TrimSuffix(buf.String(), "\n")
	if line != string(b) {
		t.Errorf("console line %q does not match returned JSON %q", line, string(b))
	}

	var e Event
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		t.Fatalf("failed to decode line: %v", err)
	}
	if e.Level != "warn" || e.Name != "order.fallback" || e.Message != "using default order" {
		t.Errorf("unexpected event: %+v", e)
	}
	if TotalCount() != 1 {
		t.Errorf("expected total count 1, got %d", TotalCount())
	}
}

func TestHistoryDropsOldest(t *testing.T) {
	Clear()
	SetOutput(nil)

	for i := 0; i < historySize+10; i++ {
		Emit("debug", "stimulus.onset", "", map[string]interface{}{"i": i})
	}

	all := Snapshot()
	if len(all) != historySize {
		t.Fatalf("expected %d events, got %d", historySize, len(all))
	}
	if all[0].Fields["i"] != 10 {
		t.Errorf("expected oldest retained event i=10, got %v", all[0].Fields["i"])
	}
	if all[len(all)-1].Fields["i"] != historySize+9 {
		t.Errorf("expected newest event i=%d, got %v", historySize+9, all[len(all)-1].Fields["i"])
	}
	if TotalCount() != int64(historySize+10) {
		t.Errorf("expected total %d, got %d", historySize+10, TotalCount())
	}
}
