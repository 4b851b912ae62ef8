package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStateDBRoundTrip(t *testing.T) {
	db, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	defer db.Close()

	if _, ok, err := db.ActiveWindow(); err != nil || ok {
		t.Fatalf("ActiveWindow on empty db = ok %v, err %v; want none", ok, err)
	}

	w := Window{
		SessionID:   uuid.New(),
		ExerciseID:  uuid.New(),
		SetID:       uuid.New(),
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		DurationSec: 90,
	}
	if err := db.SaveWindow(w); err != nil {
		t.Fatalf("SaveWindow: %v", err)
	}

	got, ok, err := db.ActiveWindow()
	if err != nil || !ok {
		t.Fatalf("ActiveWindow = ok %v, err %v; want window", ok, err)
	}
	if got.SetID != w.SetID || got.SessionID != w.SessionID || got.ExerciseID != w.ExerciseID {
		t.Errorf("ActiveWindow ids = %+v, want %+v", got, w)
	}
	if !got.StartedAt.Equal(w.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, w.StartedAt)
	}
	if got.DurationSec != 90 {
		t.Errorf("DurationSec = %d, want 90", got.DurationSec)
	}

	// A new window replaces the old one.
	w2 := w
	w2.SetID = uuid.New()
	if err := db.SaveWindow(w2); err != nil {
		t.Fatalf("SaveWindow replace: %v", err)
	}
	got, ok, err = db.ActiveWindow()
	if err != nil || !ok {
		t.Fatalf("ActiveWindow after replace = ok %v, err %v", ok, err)
	}
	if got.SetID != w2.SetID {
		t.Errorf("SetID after replace = %s, want %s", got.SetID, w2.SetID)
	}

	if err := db.ClearWindow(w2.SetID); err != nil {
		t.Fatalf("ClearWindow: %v", err)
	}
	if _, ok, _ := db.ActiveWindow(); ok {
		t.Error("window still present after ClearWindow")
	}
}

func TestStateDBReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := OpenStateDB(dir)
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	w := Window{
		SessionID:   uuid.New(),
		ExerciseID:  uuid.New(),
		SetID:       uuid.New(),
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		DurationSec: 120,
	}
	if err := db.SaveWindow(w); err != nil {
		t.Fatalf("SaveWindow: %v", err)
	}
	db.Close()

	db, err = OpenStateDB(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	got, ok, err := db.ActiveWindow()
	if err != nil || !ok {
		t.Fatalf("ActiveWindow after reopen = ok %v, err %v", ok, err)
	}
	if got.SetID != w.SetID {
		t.Errorf("SetID = %s, want %s", got.SetID, w.SetID)
	}
}
