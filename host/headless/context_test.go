package headless

import (
	"errors"
	"testing"

	"github.com/gogpu/xr/host"
)

func TestContextOwnership(t *testing.T) {
	g := &shareGroup{}
	c := newContext(g, "test")

	if err := c.DoneCurrent(); !errors.Is(err, host.ErrContextNotCurrent) {
		t.Errorf("DoneCurrent() before MakeCurrent error = %v, want ErrContextNotCurrent", err)
	}
	if err := c.MakeCurrent(); err != nil {
		t.Fatalf("MakeCurrent() error = %v", err)
	}
	if !g.anyCurrent() {
		t.Error("anyCurrent() = false with a current context")
	}
	if err := c.MakeCurrent(); !errors.Is(err, host.ErrContextBusy) {
		t.Errorf("second MakeCurrent() error = %v, want ErrContextBusy", err)
	}
	if err := c.Destroy(); !errors.Is(err, host.ErrContextBusy) {
		t.Errorf("Destroy() while current error = %v, want ErrContextBusy", err)
	}
	if err := c.DoneCurrent(); err != nil {
		t.Fatalf("DoneCurrent() error = %v", err)
	}
	if g.anyCurrent() {
		t.Error("anyCurrent() = true after DoneCurrent")
	}
	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := c.Destroy(); err != nil {
		t.Errorf("second Destroy() error = %v", err)
	}
	if err := c.MakeCurrent(); !errors.Is(err, host.ErrContextDestroyed) {
		t.Errorf("MakeCurrent() after Destroy error = %v, want ErrContextDestroyed", err)
	}
	if got := c.MakeCurrentCount(); got != 1 {
		t.Errorf("MakeCurrentCount() = %d, want 1", got)
	}
}
