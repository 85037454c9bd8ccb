package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

type fakeExchange struct {
	mu        sync.Mutex
	registers int
	redeems   atomic.Int32

	registerErr error
	redeemErr   error
	payload     json.RawMessage
	// gate, when set, blocks Redeem/Register until closed
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeExchange) Register(ctx context.Context, payload json.RawMessage) (string, error) {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.registers++
	return fmt.Sprintf("code%02d", f.registers), nil
}

func (f *fakeExchange) Redeem(ctx context.Context, id string) (json.RawMessage, error) {
	f.redeems.Add(1)
	f.wait(ctx)
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return f.payload, nil
}

func (f *fakeExchange) wait(ctx context.Context) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
		}
	}
}

type fakeLocal struct {
	mu          sync.Mutex
	snapshot    json.RawMessage
	snapshotErr error
	replaced    []json.RawMessage
	replaceErr  error
}

func (f *fakeLocal) Snapshot() (json.RawMessage, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeLocal) Replace(payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.replaced = append(f.replaced, payload)
	return nil
}

func (f *fakeLocal) replacedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replaced)
}

// fakeDecoder captures the callbacks so tests can fire decode results by hand.
type fakeDecoder struct {
	mu       sync.Mutex
	startErr error
	onText   func(string)
	onErr    func(error)
	stops    int
}

func (f *fakeDecoder) Start(ctx context.Context, onText func(string), onErr func(error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.onText = onText
	f.onErr = onErr
	return nil
}

func (f *fakeDecoder) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeDecoder) emit(text string) {
	f.mu.Lock()
	cb := f.onText
	f.mu.Unlock()
	cb(text)
}

func (f *fakeDecoder) fail(err error) {
	f.mu.Lock()
	cb := f.onErr
	f.mu.Unlock()
	cb(err)
}

func (f *fakeDecoder) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) last() (Notice, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.notices) == 0 {
		return Notice{}, false
	}
	return l.notices[len(l.notices)-1], true
}
