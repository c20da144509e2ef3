package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/portfolio-sync/internal/model"
)

// Resource paths relative to the API root.
const (
	PathBalance         = "/portfolio/carteira"
	PathAllocation      = "/portfolio/distribuicao"
	PathHoldings        = "/portfolio/posicoes"
	PathTransactions    = "/portfolio/transacoes"
	PathDiversification = "/portfolio/configuracao-diversificacao"
	PathAlerts          = "/alerts/"
	PathStatus          = "/status"
)

// GetBalance fetches the wallet summary.
func (c *Client) GetBalance(ctx context.Context) (model.Wallet, error) {
	body, err := c.get(ctx, PathBalance, nil)
	if err != nil {
		return model.Wallet{}, fmt.Errorf("get balance: %w", err)
	}
	return decodeBalance(body)
}

// GetAllocation fetches the wallet distribution by asset type.
func (c *Client) GetAllocation(ctx context.Context) ([]model.AllocationEntry, error) {
	v, err := c.getResource(ctx, model.Allocation, PathAllocation, nil)
	if err != nil {
		return nil, err
	}
	return v.([]model.AllocationEntry), nil
}

// GetHoldings fetches every open position.
func (c *Client) GetHoldings(ctx context.Context) ([]model.Position, error) {
	v, err := c.getResource(ctx, model.Holdings, PathHoldings, nil)
	if err != nil {
		return nil, err
	}
	return v.([]model.Position), nil
}

// GetTransactions fetches the most recent transactions, newest first.
// A limit of 0 uses the backend default.
func (c *Client) GetTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	v, err := c.getResource(ctx, model.Transactions, PathTransactions, query)
	if err != nil {
		return nil, err
	}
	return v.([]model.Transaction), nil
}

// GetDiversificationTargets fetches the configured target allocation.
func (c *Client) GetDiversificationTargets(ctx context.Context) ([]model.DiversificationTarget, error) {
	body, err := c.get(ctx, PathDiversification, nil)
	if err != nil {
		return nil, fmt.Errorf("get diversification targets: %w", err)
	}

	var resp DiversificationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal diversification targets: %w", err)
	}
	return resp.Targets, nil
}

// GetStatus fetches the backend status summary.
func (c *Client) GetStatus(ctx context.Context) (*model.ServiceStatus, error) {
	body, err := c.get(ctx, PathStatus, nil)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	var resp model.ServiceStatus
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return &resp, nil
}

// getResource performs a GET and decodes the body as resource r.
func (c *Client) getResource(ctx context.Context, r model.Resource, path string, query url.Values) (any, error) {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r, err)
	}
	return DecodeResource(r, body)
}
