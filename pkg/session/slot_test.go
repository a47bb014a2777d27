package session

import (
	"sync"
	"testing"

	"github.com/luminahq/lumina/pkg/errors"
)

func TestSlot_AcquireRelease(t *testing.T) {
	var slot Slot

	if active, _ := slot.Active(); active {
		t.Fatal("fresh slot should be idle")
	}

	if err := slot.Acquire("meet-1"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	active, meetingID := slot.Active()
	if !active || meetingID != "meet-1" {
		t.Errorf("Active() = %v, %q", active, meetingID)
	}

	if err := slot.Acquire("meet-2"); !errors.IsSessionActive(err) {
		t.Errorf("second Acquire = %v, want ErrSessionActive", err)
	}

	slot.Release()
	if active, _ := slot.Active(); active {
		t.Error("slot should be idle after Release")
	}
	if err := slot.Acquire("meet-2"); err != nil {
		t.Errorf("Acquire after Release: %v", err)
	}
}

func TestSlot_ReleaseIdleIsNoop(t *testing.T) {
	var slot Slot
	slot.Release()
	slot.Release()
	if err := slot.Acquire("meet-1"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
}

func TestSlot_ConcurrentAcquire(t *testing.T) {
	var slot Slot
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if slot.Acquire("meet-1") == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Errorf("winners = %d, want exactly 1", won)
	}
}
