package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evse-go/iso15118/pkg/d20"
	"github.com/evse-go/iso15118/pkg/message"
)

func testPause() d20.PauseContext {
	return d20.PauseContext{
		SessionID: message.SessionID{0x10, 0x34, 0xAB, 0x7A, 0x01, 0xF3, 0x95, 0x02},
		CertHash:  []byte{0xDE, 0xAD, 0xBE, 0xEF},
		Selected: d20.SelectedServices{
			EnergyService:  message.ServiceDC,
			ParameterSetID: 1,
			ControlMode:    message.ControlModeScheduled,
			VAS:            []message.SelectedService{{ServiceID: 65, ParameterSetID: 2}},
		},
		PausedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStateStore(t *testing.T) {
	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewStateStore(filepath.Join(t.TempDir(), "state.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Pause != nil || len(got.History) != 0 {
			t.Errorf("Load() = %+v, want empty state", got)
		}
	})

	t.Run("CreatesParentDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
		store := NewStateStore(path)

		if err := store.Save(&StationState{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("state file not created: %v", err)
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Errorf("temporary file left behind")
		}
	})

	t.Run("PauseRoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		want := testPause()

		if err := NewStateStore(path).SavePause(want); err != nil {
			t.Fatalf("SavePause() error = %v", err)
		}

		// A new store simulates a restart.
		got, ok, err := NewStateStore(path).LoadPause()
		if err != nil {
			t.Fatalf("LoadPause() error = %v", err)
		}
		if !ok {
			t.Fatal("LoadPause() found no pause context")
		}
		if got.SessionID != want.SessionID {
			t.Errorf("SessionID = %s, want %s", got.SessionID, want.SessionID)
		}
		if string(got.CertHash) != string(want.CertHash) {
			t.Errorf("CertHash = %x, want %x", got.CertHash, want.CertHash)
		}
		if got.Selected.EnergyService != message.ServiceDC || got.Selected.ControlMode != message.ControlModeScheduled {
			t.Errorf("Selected = %+v", got.Selected)
		}
		if len(got.Selected.VAS) != 1 || got.Selected.VAS[0].ServiceID != 65 {
			t.Errorf("VAS = %+v", got.Selected.VAS)
		}
		if !got.PausedAt.Equal(want.PausedAt) {
			t.Errorf("PausedAt = %v, want %v", got.PausedAt, want.PausedAt)
		}
	})

	t.Run("ClearPauseKeepsHistory", func(t *testing.T) {
		store := NewStateStore(filepath.Join(t.TempDir(), "state.json"))

		if err := store.Record(SessionRecord{ConnectionID: "c1", Outcome: "pause"}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if err := store.SavePause(testPause()); err != nil {
			t.Fatalf("SavePause() error = %v", err)
		}
		if err := store.ClearPause(); err != nil {
			t.Fatalf("ClearPause() error = %v", err)
		}

		state, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if state.Pause != nil {
			t.Error("pause context not cleared")
		}
		if len(state.History) != 1 {
			t.Errorf("History length = %d, want 1", len(state.History))
		}
	})

	t.Run("HistoryIsBounded", func(t *testing.T) {
		store := NewStateStore(filepath.Join(t.TempDir(), "state.json"))

		for i := range MaxHistory + 5 {
			rec := SessionRecord{ConnectionID: string(rune('a' + i%26)), Outcome: "terminate", EndedAt: time.Unix(int64(i), 0)}
			if err := store.Record(rec); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
		}

		state, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(state.History) != MaxHistory {
			t.Fatalf("History length = %d, want %d", len(state.History), MaxHistory)
		}
		if got := state.History[0].EndedAt.Unix(); got != 5 {
			t.Errorf("oldest record = %d, want 5", got)
		}
	})

	t.Run("RejectsNewerVersion", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		if err := os.WriteFile(path, []byte(`{"version": 99}`), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := NewStateStore(path).Load(); err == nil {
			t.Error("Load() accepted a newer state version")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		store := NewStateStore(path)

		if err := store.SavePause(testPause()); err != nil {
			t.Fatalf("SavePause() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Errorf("Clear() on missing file error = %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("state file still exists")
		}
	})
}

func TestPauseStoreAdapter(t *testing.T) {
	ps := NewStateStore(filepath.Join(t.TempDir(), "state.json")).PauseStore()

	if _, ok, err := ps.Load(); err != nil || ok {
		t.Fatalf("Load() = _, %v, %v, want empty", ok, err)
	}
	if err := ps.Save(testPause()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, ok, _ := ps.Load(); !ok {
		t.Error("Load() after Save() found nothing")
	}
	if err := ps.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := ps.Load(); ok {
		t.Error("Load() after Clear() still found a context")
	}
}
