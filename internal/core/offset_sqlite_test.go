package core

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestSQLiteOffsetStore(t *testing.T) {
	t.Parallel()

	// Create a temporary database file
	tmpFile, err := os.CreateTemp("", "offset_test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer func() {
		_ = os.Remove(tmpFile.Name())
	}()
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("Failed to close temp file: %v", err)
	}

	store, err := NewSQLiteOffsetStore(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to create offset store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx := context.Background()
	key := historyOffsetKey("dev-1", "Living Room")

	t.Run("GetLastHistoryTime returns zero time when not set", func(t *testing.T) {
		ts, err := store.GetLastHistoryTime(ctx, key)
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if !ts.IsZero() {
			t.Errorf("Expected zero time, got %v", ts)
		}
	})

	t.Run("SetLastHistoryTime and GetLastHistoryTime", func(t *testing.T) {
		expectedTime := time.Now().UTC().Truncate(time.Second)

		if err := store.SetLastHistoryTime(ctx, key, expectedTime); err != nil {
			t.Fatalf("Failed to set history time: %v", err)
		}

		retrievedTime, err := store.GetLastHistoryTime(ctx, key)
		if err != nil {
			t.Fatalf("Failed to get history time: %v", err)
		}

		if !retrievedTime.Equal(expectedTime) {
			t.Errorf("Expected %v, got %v", expectedTime, retrievedTime)
		}
	})

	t.Run("GetLastSnapshotTime returns zero time when not set", func(t *testing.T) {
		ts, err := store.GetLastSnapshotTime(ctx, "another-device")
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		if !ts.IsZero() {
			t.Errorf("Expected zero time, got %v", ts)
		}
	})

	t.Run("SetLastSnapshotTime and GetLastSnapshotTime", func(t *testing.T) {
		expectedTime := time.Now().UTC().Truncate(time.Second)

		if err := store.SetLastSnapshotTime(ctx, "dev-1", expectedTime); err != nil {
			t.Fatalf("Failed to set snapshot time: %v", err)
		}

		retrievedTime, err := store.GetLastSnapshotTime(ctx, "dev-1")
		if err != nil {
			t.Fatalf("Failed to get snapshot time: %v", err)
		}

		if !retrievedTime.Equal(expectedTime) {
			t.Errorf("Expected %v, got %v", expectedTime, retrievedTime)
		}
	})

	t.Run("Update existing history time", func(t *testing.T) {
		firstTime := time.Now().UTC().Truncate(time.Second)
		secondTime := firstTime.Add(6 * time.Hour)

		if err := store.SetLastHistoryTime(ctx, key, firstTime); err != nil {
			t.Fatalf("Failed to set first time: %v", err)
		}
		if err := store.SetLastHistoryTime(ctx, key, secondTime); err != nil {
			t.Fatalf("Failed to set second time: %v", err)
		}

		retrievedTime, err := store.GetLastHistoryTime(ctx, key)
		if err != nil {
			t.Fatalf("Failed to get history time: %v", err)
		}

		if !retrievedTime.Equal(secondTime) {
			t.Errorf("Expected %v, got %v", secondTime, retrievedTime)
		}
	})

	t.Run("Multiple zones", func(t *testing.T) {
		key1 := historyOffsetKey("dev-1", "Hall")
		key2 := historyOffsetKey("dev-2", "Hall")
		time1 := time.Now().UTC().Truncate(time.Second)
		time2 := time1.Add(1 * time.Hour)

		if err := store.SetLastHistoryTime(ctx, key1, time1); err != nil {
			t.Fatalf("Failed to set time for key1: %v", err)
		}
		if err := store.SetLastHistoryTime(ctx, key2, time2); err != nil {
			t.Fatalf("Failed to set time for key2: %v", err)
		}

		retrieved1, err := store.GetLastHistoryTime(ctx, key1)
		if err != nil {
			t.Fatalf("Failed to get time for key1: %v", err)
		}
		retrieved2, err := store.GetLastHistoryTime(ctx, key2)
		if err != nil {
			t.Fatalf("Failed to get time for key2: %v", err)
		}

		if !retrieved1.Equal(time1) {
			t.Errorf("Expected %v for key1, got %v", time1, retrieved1)
		}
		if !retrieved2.Equal(time2) {
			t.Errorf("Expected %v for key2, got %v", time2, retrieved2)
		}
	})
}
