package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/portfolio-sync/internal/model"
)

// Errors
var (
	ErrEmptyPayload   = errors.New("empty payload")
	ErrMissingField   = errors.New("missing field")
	ErrUnknownPayload = errors.New("unknown resource")
)

// DecodeResource decodes a resource body into its model value. The body has
// the same shape whether it came from the REST endpoint or a pushed frame.
//
// Returned types: model.Wallet, []model.AllocationEntry, []model.Position,
// []model.Transaction, []model.Alert. List values are never nil, so an empty
// list stays distinguishable from an unloaded resource.
func DecodeResource(r model.Resource, data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("decode %s: %w", r, ErrEmptyPayload)
	}

	switch r {
	case model.Balance:
		return decodeBalance(data)
	case model.Allocation:
		var resp AllocationResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r, err)
		}
		return requireList(r, "distribuicao", resp.Allocation)
	case model.Holdings:
		var resp HoldingsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r, err)
		}
		return requireList(r, "posicoes", resp.Positions)
	case model.Transactions:
		var resp TransactionsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r, err)
		}
		return requireList(r, "transacoes", resp.Transactions)
	case model.Alerts:
		var resp AlertsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r, err)
		}
		return requireList(r, "alertas", resp.Alerts)
	default:
		return nil, fmt.Errorf("decode %s: %w", r, ErrUnknownPayload)
	}
}

func decodeBalance(data []byte) (model.Wallet, error) {
	var wire struct {
		Available *float64         `json:"saldo_disponivel"`
		Total     *float64         `json:"valor_total"`
		UpdatedAt *model.Timestamp `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return model.Wallet{}, fmt.Errorf("decode balance: %w", err)
	}
	if wire.Available == nil {
		return model.Wallet{}, fmt.Errorf("decode balance: %w: saldo_disponivel", ErrMissingField)
	}
	if wire.Total == nil {
		return model.Wallet{}, fmt.Errorf("decode balance: %w: valor_total", ErrMissingField)
	}

	b := model.Wallet{
		Available: *wire.Available,
		Total:     *wire.Total,
	}
	if wire.UpdatedAt != nil && !wire.UpdatedAt.IsZero() {
		b.UpdatedAt = wire.UpdatedAt
	}
	return b, nil
}

// requireList unwraps a list field, rejecting a missing or null key.
func requireList[T any](r model.Resource, field string, list *[]T) ([]T, error) {
	if list == nil || *list == nil {
		return nil, fmt.Errorf("decode %s: %w: %s", r, ErrMissingField, field)
	}
	return *list, nil
}
