package ops

import (
	"context"
	"testing"
	"time"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/host"
)

func TestResolveWindow(t *testing.T) {
	f := newFixture(t)

	id, err := resolveWindow(f.ctx(), f.d, 7)
	if err != nil {
		t.Fatalf("resolveWindow failed: %v", err)
	}
	if id != 7 {
		t.Errorf("id = %d, want 7", id)
	}

	id, err = resolveWindow(f.ctx(), f.d, 0)
	if err != nil {
		t.Fatalf("resolveWindow failed: %v", err)
	}
	if id != win {
		t.Errorf("id = %d, want current window %d", id, win)
	}

	f.d.Host = nil
	if _, err := resolveWindow(f.ctx(), f.d, 0); !errors.Is(err, errors.ErrHostUnavailable) {
		t.Errorf("expected ErrHostUnavailable, got: %v", err)
	}
	// An explicit window needs no host
	if _, err := resolveWindow(f.ctx(), f.d, 3); err != nil {
		t.Errorf("explicit window failed: %v", err)
	}
}

func TestErrorWrapping(t *testing.T) {
	if err := readErr("k", nil); err != nil {
		t.Errorf("readErr(nil) = %v, want nil", err)
	}
	if err := readErr("k", errTest); !errors.Is(err, errors.ErrStorageRead) {
		t.Errorf("expected ErrStorageRead, got: %v", err)
	}
	if err := writeErr("k", errTest); !errors.Is(err, errors.ErrStorageWrite) {
		t.Errorf("expected ErrStorageWrite, got: %v", err)
	}
	if err := hostErr("tab", 1, host.ErrNotFound); !errors.Is(err, errors.ErrHostLookup) {
		t.Errorf("expected ErrHostLookup, got: %v", err)
	}

	// Coded errors pass through untouched
	coded := errors.NewNotFound("work")
	for _, err := range []error{readErr("k", coded), writeErr("k", coded), hostErr("tab", 1, coded)} {
		if !errors.Is(err, errors.ErrNotFound) {
			t.Errorf("expected ErrNotFound to pass through, got: %v", err)
		}
	}
}

func TestSleep(t *testing.T) {
	if err := sleep(context.Background(), 0); err != nil {
		t.Errorf("sleep(0) = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); err == nil {
		t.Error("expected cancelled sleep to return an error")
	}
}

func TestDepsDefaults(t *testing.T) {
	var d Deps
	if d.log() == nil {
		t.Error("log() returned nil")
	}
	if cfg := d.config(); cfg == nil || cfg.DiscardConcurrency != 4 {
		t.Errorf("config() = %+v, want defaults", cfg)
	}
}
