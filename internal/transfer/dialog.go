// Package transfer drives the generate / scan / confirm flow that moves local
// application state from one device to another through the exchange.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// Exchange registers and redeems payloads. It is the network boundary.
type Exchange interface {
	Register(ctx context.Context, payload json.RawMessage) (string, error)
	Redeem(ctx context.Context, id string) (json.RawMessage, error)
}

// LocalState is the receiving device's application state, replaced wholesale.
type LocalState interface {
	Snapshot() (json.RawMessage, error)
	Replace(payload json.RawMessage) error
}

// Decoder turns a camera stream or an image into QR text. Start must not
// block; results arrive through onText, terminal failures through onErr.
// Stop releases the capture device. It may be called from inside a callback,
// so it must not wait for callbacks to return.
type Decoder interface {
	Start(ctx context.Context, onText func(string), onErr func(error)) error
	Stop()
}

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Notice is a transient message for the user.
type Notice struct {
	Level   Level
	Title   string
	Message string
	Err     error
}

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type Option func(*Dialog)

const eventBuffer = 16

// WithIDCheck rejects scanned ids that fail valid before touching the network.
func WithIDCheck(valid func(string) bool) Option {
	return func(d *Dialog) { d.validID = valid }
}

// WithShapeCheck replaces ValidateShape.
func WithShapeCheck(check func(json.RawMessage) error) Option {
	return func(d *Dialog) { d.checkShape = check }
}

func WithNotifier(n Notifier) Option {
	return func(d *Dialog) { d.notifier = n }
}

// WithStateListener is called after every transition, outside the dialog lock.
func WithStateListener(fn func(State)) Option {
	return func(d *Dialog) { d.listener = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dialog) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dialog is the transfer state machine. Transition methods are the only
// way its state changes; results that arrive after the dialog was closed or
// navigated away from are dropped.
type Dialog struct {
	exchange Exchange
	local    LocalState
	appURL   string

	validID    func(string) bool
	checkShape func(json.RawMessage) error
	notifier   Notifier
	listener   func(State)
	logger     *slog.Logger
	events     chan State

	mu    sync.Mutex
	open  bool
	state State
	// epoch changes whenever in-flight work must be forgotten
	epoch uint64
	scan  *scanSession
}

func NewDialog(ex Exchange, local LocalState, appURL string, opts ...Option) *Dialog {
	d := &Dialog{
		exchange:   ex,
		local:      local,
		appURL:     appURL,
		checkShape: ValidateShape,
		logger:     slog.Default(),
		state:      Options{},
		events:     make(chan State, eventBuffer),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = NotifierFunc(d.logNotice)
	}
	return d
}

// Events delivers state changes to frontends. Changes are dropped when the
// reader falls behind; State is always current.
func (d *Dialog) Events() <-chan State {
	return d.events
}

func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Open shows the dialog in Options. Opening an open dialog does nothing.
func (d *Dialog) Open() {
	d.mu.Lock()
	if d.open {
		d.mu.Unlock()
		return
	}
	d.open = true
	d.epoch++
	d.state = Options{}
	d.mu.Unlock()

	d.publish(Options{}, nil)
}

// Close discards whatever the dialog was doing, including a pending payload,
// and releases the decoder. The next Open starts from Options.
func (d *Dialog) Close() {
	d.mu.Lock()
	sess := d.resetLocked()
	d.open = false
	d.mu.Unlock()

	sess.stop()
	d.publish(Options{}, nil)
}

// Back returns to Options from Generating, ReadyToShare or Scanning.
func (d *Dialog) Back() error {
	d.mu.Lock()
	switch d.state.(type) {
	case Generating, ReadyToShare, Scanning:
	default:
		d.mu.Unlock()
		return ErrInvalidTransition
	}
	sess := d.resetLocked()
	d.mu.Unlock()

	sess.stop()
	d.publish(Options{}, nil)
	return nil
}

// Generate registers a snapshot of local state and moves to ReadyToShare.
// Every call mints a new id.
func (d *Dialog) Generate(ctx context.Context) error {
	d.mu.Lock()
	if err := d.checkOptionsLocked(); err != nil {
		d.mu.Unlock()
		return err
	}
	d.state = Generating{}
	epoch := d.epoch
	d.mu.Unlock()

	d.publish(Generating{}, nil)

	link, err := d.generate(ctx)

	d.mu.Lock()
	if d.epoch != epoch {
		d.mu.Unlock()
		d.logger.Debug("generate result discarded")
		return ErrDiscarded
	}
	if err != nil {
		d.state = Options{}
		d.mu.Unlock()
		d.publish(Options{}, errorNotice("Could not create transfer code", err))
		return err
	}
	next := ReadyToShare{ID: link.id, URL: link.url}
	d.state = next
	d.mu.Unlock()

	d.publish(next, nil)
	return nil
}

type shareLink struct{ id, url string }

func (d *Dialog) generate(ctx context.Context) (shareLink, error) {
	payload, err := d.local.Snapshot()
	if err != nil {
		return shareLink{}, NewError(KindInternal, err)
	}

	id, err := d.exchange.Register(ctx, payload)
	if err != nil {
		return shareLink{}, classify(err, KindNetwork)
	}

	url, err := BuildURL(d.appURL, id)
	if err != nil {
		return shareLink{}, NewError(KindInternal, err)
	}
	return shareLink{id: id, url: url}, nil
}

// Scan starts dec and moves to Scanning. Results from dec are bound to this
// scan session; once it ends they are ignored.
func (d *Dialog) Scan(ctx context.Context, dec Decoder) error {
	d.mu.Lock()
	if err := d.checkOptionsLocked(); err != nil {
		d.mu.Unlock()
		return err
	}
	sess := newScanSession(ctx, dec)
	d.scan = sess
	d.state = Scanning{}
	d.mu.Unlock()

	d.publish(Scanning{}, nil)

	err := dec.Start(sess.ctx,
		func(text string) { d.handleDecoded(sess, text) },
		func(err error) { d.handleDecodeError(sess, err) },
	)
	if err != nil {
		err = classify(err, KindCameraUnavailable)
		d.failScan(sess, err)
		return err
	}
	return nil
}

// HandleDecoded feeds text decoded outside of a Decoder into the current scan session.
func (d *Dialog) HandleDecoded(text string) {
	d.mu.Lock()
	sess := d.scan
	d.mu.Unlock()

	if sess != nil {
		d.handleDecoded(sess, text)
	}
}

// Confirm replaces local state with the pending payload and closes the dialog.
// If the replace fails the payload stays pending so the user can retry or cancel.
func (d *Dialog) Confirm() error {
	d.mu.Lock()
	pending, ok := d.state.(PendingConfirmation)
	if !ok {
		d.mu.Unlock()
		return ErrInvalidTransition
	}
	if err := d.local.Replace(pending.Payload); err != nil {
		d.mu.Unlock()
		err = NewError(KindInternal, err)
		d.notify(*errorNotice("Transfer failed", err))
		return err
	}
	sess := d.resetLocked()
	d.open = false
	d.mu.Unlock()

	sess.stop()
	d.publish(Options{}, &Notice{Level: LevelInfo, Title: "Success!", Message: "Data transferred successfully."})
	return nil
}

// Cancel drops the pending payload without touching local state.
func (d *Dialog) Cancel() error {
	d.mu.Lock()
	if _, ok := d.state.(PendingConfirmation); !ok {
		d.mu.Unlock()
		return ErrInvalidTransition
	}
	sess := d.resetLocked()
	d.open = false
	d.mu.Unlock()

	sess.stop()
	d.publish(Options{}, nil)
	return nil
}

func (d *Dialog) checkOptionsLocked() error {
	if !d.open {
		return ErrInvalidTransition
	}
	if _, ok := d.state.(Options); !ok {
		return ErrInvalidTransition
	}
	return nil
}

func (d *Dialog) handleDecoded(sess *scanSession, text string) {
	if !sess.guard.tryAcquire() {
		d.logger.Debug("decode result ignored: redemption in flight")
		return
	}

	d.mu.Lock()
	current := d.scan == sess
	d.mu.Unlock()
	if !current {
		return
	}

	id, err := ParseURL(text, d.validID)
	if err != nil {
		d.failScan(sess, err)
		return
	}

	payload, err := d.exchange.Redeem(sess.ctx, id)
	if err != nil {
		d.failScan(sess, classify(err, KindNetwork))
		return
	}

	if err := d.checkShape(payload); err != nil {
		d.failScan(sess, classify(err, KindInvalidDataShape))
		return
	}

	d.mu.Lock()
	if d.scan != sess {
		d.mu.Unlock()
		d.logger.Warn("redeemed transfer discarded: scan session ended", "id", id)
		return
	}
	// the guard stays in flight until Confirm or Cancel ends the session
	next := PendingConfirmation{Payload: payload}
	d.state = next
	d.mu.Unlock()

	sess.stopDecoder()
	d.publish(next, nil)
}

func (d *Dialog) handleDecodeError(sess *scanSession, err error) {
	if !sess.guard.idle() {
		return
	}
	d.failScan(sess, classify(err, KindCameraUnavailable))
}

// failScan ends sess, returns to Options and tells the user why.
func (d *Dialog) failScan(sess *scanSession, err error) {
	d.mu.Lock()
	if d.scan != sess {
		d.mu.Unlock()
		sess.stop()
		return
	}
	sess.guard.release()
	d.resetLocked()
	d.mu.Unlock()

	sess.stop()
	d.publish(Options{}, errorNotice(titleFor(err), err))
}

// resetLocked returns to Options, forgets in-flight work and detaches the
// scan session. The caller stops the returned session after unlocking.
func (d *Dialog) resetLocked() *scanSession {
	sess := d.scan
	d.scan = nil
	d.epoch++
	d.state = Options{}
	return sess
}

func (d *Dialog) publish(s State, n *Notice) {
	if n != nil {
		d.notify(*n)
	}
	if d.listener != nil {
		d.listener(s)
	}
	select {
	case d.events <- s:
	default:
	}
}

func (d *Dialog) notify(n Notice) {
	d.notifier.Notify(n)
}

func (d *Dialog) logNotice(n Notice) {
	if n.Level == LevelError {
		d.logger.Warn(n.Title, "message", n.Message, "error", n.Err)
		return
	}
	d.logger.Info(n.Title, "message", n.Message)
}

func errorNotice(title string, err error) *Notice {
	return &Notice{
		Level:   LevelError,
		Title:   title,
		Message: KindOf(err, KindInternal).Message(),
		Err:     err,
	}
}

func titleFor(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return "Code expired"
	case errors.Is(err, ErrNotFound):
		return "Code not found"
	case errors.Is(err, ErrInvalidQRPayload):
		return "Invalid QR Code"
	case errors.Is(err, ErrInvalidDataShape):
		return "Invalid data"
	case errors.Is(err, ErrCameraUnavailable):
		return "Camera Access Denied"
	case errors.Is(err, ErrNetwork):
		return "Network error"
	default:
		return "Transfer failed"
	}
}
