package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeTarget struct {
	mu      sync.Mutex
	polled  []string
	status  any
	drained map[string]any
	writes  map[string]any
}

func (f *fakeTarget) ReadParam(pname string) (any, error) { return nil, nil }
func (f *fakeTarget) Get(pname string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pname == "status" {
		return f.status, true
	}
	return nil, false
}
func (f *fakeTarget) PollOneParam(pname string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polled = append(f.polled, pname)
}
func (f *fakeTarget) DrainWriteDict() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.drained
	f.drained = map[string]any{}
	return out
}
func (f *fakeTarget) WriteParam(pname string, value any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writes == nil {
		f.writes = map[string]any{}
	}
	f.writes[pname] = value
	return value, nil
}

func TestTickReadsStatusBeforeValue(t *testing.T) {
	ft := &fakeTarget{status: []any{"IDLE", ""}, drained: map[string]any{}}
	p := New(ft, nil, 10*time.Millisecond, 50*time.Millisecond, nil)
	p.tick(0)

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.Equal(t, []string{"status", "value"}, ft.polled)
}

func TestTickDrainsWriteDict(t *testing.T) {
	ft := &fakeTarget{status: []any{"IDLE", ""}, drained: map[string]any{"target": 5.0}}
	p := New(ft, nil, 10*time.Millisecond, 50*time.Millisecond, nil)
	p.tick(0)

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.Equal(t, 5.0, ft.writes["target"])
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ft := &fakeTarget{status: []any{"IDLE", ""}, drained: map[string]any{}}
	p := New(ft, nil, 5*time.Millisecond, 20*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	time.Sleep(15 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancel")
	}
}
