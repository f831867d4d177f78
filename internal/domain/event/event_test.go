package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{name: "run interim", eventType: TypeRunInterim, want: true},
		{name: "run completed", eventType: TypeRunCompleted, want: true},
		{name: "run degraded", eventType: TypeRunDegraded, want: true},
		{name: "mappings saved", eventType: TypeMappingsSaved, want: true},
		{name: "empty", eventType: "", want: false},
		{name: "unknown", eventType: "run.unknown", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	evt := NewEvent(TypeRunCompleted, "run-1", map[string]interface{}{KeySupplier: "ACME"})
	after := time.Now()

	if evt.ID == "" {
		t.Error("expected generated ID")
	}
	if evt.Type != TypeRunCompleted {
		t.Errorf("Type = %v, want %v", evt.Type, TypeRunCompleted)
	}
	if evt.RunID != "run-1" {
		t.Errorf("RunID = %v, want run-1", evt.RunID)
	}
	if evt.Timestamp.Before(before) || evt.Timestamp.After(after) {
		t.Errorf("Timestamp %v outside [%v, %v]", evt.Timestamp, before, after)
	}
	if got := evt.GetPayloadString(KeySupplier); got != "ACME" {
		t.Errorf("supplier = %q, want ACME", got)
	}

	other := NewEvent(TypeRunCompleted, "run-1", nil)
	if other.ID == evt.ID {
		t.Error("expected unique IDs")
	}
	if other.Payload == nil {
		t.Error("expected non-nil payload")
	}
}

func TestEvent_WithPayloadDoesNotMutate(t *testing.T) {
	original := NewEvent(TypeRunDegraded, "run-2", map[string]interface{}{KeyStatus: "DEGRADED"})
	updated := original.WithPayload(KeyError, "timeout")

	if _, ok := original.Payload[KeyError]; ok {
		t.Error("original payload was mutated")
	}
	if updated.GetPayloadString(KeyError) != "timeout" {
		t.Error("updated payload missing error")
	}
	if updated.ID != original.ID || updated.RunID != original.RunID {
		t.Error("identity fields should be preserved")
	}
}

func TestEvent_PayloadAccessors(t *testing.T) {
	evt := NewEvent(TypeMappingsSaved, "", map[string]interface{}{
		KeySucceeded:    3,
		KeyFailedCount:  int64(1),
		KeyDifference:   -4.5,
		KeyItemCount:    float64(7),
		KeyFailedReason: []string{"Nut: disk full"},
		"wrong_type":    true,
	})

	if got := evt.GetPayloadInt(KeySucceeded); got != 3 {
		t.Errorf("succeeded = %d", got)
	}
	if got := evt.GetPayloadInt(KeyFailedCount); got != 1 {
		t.Errorf("failed_count = %d", got)
	}
	if got := evt.GetPayloadInt(KeyItemCount); got != 7 {
		t.Errorf("item_count = %d", got)
	}
	if got := evt.GetPayloadFloat(KeyDifference); got != -4.5 {
		t.Errorf("difference = %v", got)
	}
	if got := evt.GetPayloadFloat(KeySucceeded); got != 3 {
		t.Errorf("succeeded as float = %v", got)
	}
	if got := evt.GetPayloadStrings(KeyFailedReason); len(got) != 1 {
		t.Errorf("failed_reasons = %v", got)
	}
	if got := evt.GetPayloadString("wrong_type"); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := evt.GetPayloadInt("missing"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
