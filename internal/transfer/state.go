package transfer

import "encoding/json"

// State is one variant of the transfer dialog. The set of variants is closed.
type State interface {
	Name() string
	isState()
}

// Options is the initial state: pick generate or scan.
type Options struct{}

// Generating waits for the exchange to mint an id.
type Generating struct{}

// ReadyToShare shows URL as a QR code.
type ReadyToShare struct {
	ID  string
	URL string
}

// Scanning has an active decoder.
type Scanning struct{}

// PendingConfirmation holds a validated payload until the user confirms or cancels.
type PendingConfirmation struct {
	Payload json.RawMessage
}

func (Options) Name() string             { return "options" }
func (Generating) Name() string          { return "generating" }
func (ReadyToShare) Name() string        { return "ready_to_share" }
func (Scanning) Name() string            { return "scanning" }
func (PendingConfirmation) Name() string { return "pending_confirmation" }

func (Options) isState()             {}
func (Generating) isState()          {}
func (ReadyToShare) isState()        {}
func (Scanning) isState()            {}
func (PendingConfirmation) isState() {}
