package monitoring

import (
	"errors"
	"testing"
	"time"
)

type captured struct {
	errs []error
	tags []map[string]string
}

func (c *captured) CaptureException(err error, tags map[string]string) {
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
}
func (c *captured) Recover()            {}
func (c *captured) Flush(time.Duration) {}

func TestCaptureRoutesToMonitor(t *testing.T) {
	c := &captured{}
	Init(c)
	defer Init(NopMonitor{})

	CaptureException(nil, nil)
	CaptureException(errors.New("apply failed"), map[string]string{"action": "commit"})
	Init(nil)
	CaptureException(errors.New("second"), nil)

	if len(c.errs) != 2 {
		t.Fatalf("expected 2 captured errors, got %d", len(c.errs))
	}
	if c.tags[0]["action"] != "commit" {
		t.Fatalf("tags not forwarded: %v", c.tags[0])
	}
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	c := &captured{}
	Init(c)
	defer Init(NopMonitor{})

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("expected re-panic, got %v", r)
		}
		if len(c.errs) != 1 || c.tags[0]["kind"] != "panic" {
			t.Fatalf("panic not captured: %v", c.errs)
		}
	}()
	func() {
		defer Recover()
		panic("boom")
	}()
}
