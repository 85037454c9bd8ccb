package client

import (
	"context"
	"encoding/json"
	"errors"

	"stusave.app/internal/exchange"
	"stusave.app/internal/store"
	"stusave.app/internal/transfer"
)

var _ transfer.Exchange = (*Local)(nil)

// Local runs the exchange in-process, for embedded setups and tests.
type Local struct {
	svc *exchange.Service
}

func NewLocal(svc *exchange.Service) *Local {
	return &Local{svc: svc}
}

func (l *Local) Register(ctx context.Context, payload json.RawMessage) (string, error) {
	id, _, err := l.svc.Register(ctx, payload)
	if err != nil {
		return "", transfer.NewError(transfer.KindInternal, err)
	}
	return id, nil
}

func (l *Local) Redeem(ctx context.Context, id string) (json.RawMessage, error) {
	payload, err := l.svc.Redeem(ctx, id)
	switch {
	case err == nil:
		return payload, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, transfer.NewError(transfer.KindNotFound, err)
	case errors.Is(err, store.ErrExpired):
		return nil, transfer.NewError(transfer.KindExpired, err)
	default:
		return nil, transfer.NewError(transfer.KindInternal, err)
	}
}
