package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRecipeValue(t *testing.T) {
	r := Recipe{
		Index:    3,
		Seed:     20260262,
		Language: LanguageJA,
		Script:   "テスト",
		LipSyncTimeline: []LipSyncCue{
			{T: 0, MouthOpen: 0.5, Phoneme: "a"},
		},
	}

	data, err := r.Value()
	if err != nil {
		t.Fatalf("failed to marshal recipe: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["script"] != "テスト" {
		t.Errorf("expected script=テスト, got %v", result["script"])
	}
}

func TestRecipeScan(t *testing.T) {
	var r Recipe
	if err := r.Scan([]byte(`{"index": 7, "seed": 42, "language": "en"}`)); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if r.Index != 7 || r.Seed != 42 {
		t.Errorf("expected index=7 seed=42, got %d %d", r.Index, r.Seed)
	}

	if err := r.Scan("not bytes"); err == nil {
		t.Error("expected error for string column")
	}
}

func TestQueueTransitions(t *testing.T) {
	tests := []struct {
		from QueueStatus
		to   QueueStatus
		ok   bool
	}{
		{QueueStatusQueued, QueueStatusRendering, true},
		{QueueStatusQueued, QueueStatusFailed, true},
		{QueueStatusQueued, QueueStatusDone, false},
		{QueueStatusRendering, QueueStatusDone, true},
		{QueueStatusRendering, QueueStatusFailed, true},
		{QueueStatusRendering, QueueStatusQueued, false},
		{QueueStatusDone, QueueStatusFailed, false},
		{QueueStatusDone, QueueStatusRendering, false},
		{QueueStatusFailed, QueueStatusQueued, false},
		{QueueStatusFailed, QueueStatusDone, false},
	}

	for _, tt := range tests {
		item := QueueItem{Index: 1, Status: tt.from}
		err := item.Transition(tt.to)
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tt.from, tt.to, err)
			}
			if item.Status != tt.from {
				t.Errorf("%s -> %s: status changed to %s on rejected transition", tt.from, tt.to, item.Status)
			}
		}
	}
}

func TestQueueStatusTerminal(t *testing.T) {
	if QueueStatusQueued.IsTerminal() || QueueStatusRendering.IsTerminal() {
		t.Error("queued and rendering must not be terminal")
	}
	if !QueueStatusDone.IsTerminal() || !QueueStatusFailed.IsTerminal() {
		t.Error("done and failed must be terminal")
	}
}
