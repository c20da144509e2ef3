package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/portfolio-sync/internal/model"
)

// ErrAlertNotFound is returned when resolving an alert the backend does not know.
var ErrAlertNotFound = errors.New("alert not found")

// GetAlerts fetches alerts, newest first.
func (c *Client) GetAlerts(ctx context.Context, opts GetAlertsOptions) ([]model.Alert, error) {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Resolved != nil {
		query.Set("resolvido", strconv.FormatBool(*opts.Resolved))
	}

	v, err := c.getResource(ctx, model.Alerts, PathAlerts, query)
	if err != nil {
		return nil, err
	}
	return v.([]model.Alert), nil
}

// ResolveAlert marks an alert as resolved.
func (c *Client) ResolveAlert(ctx context.Context, id int64) (*ResolveAlertResponse, error) {
	path := "/alerts/" + strconv.FormatInt(id, 10) + "/resolver"

	body, err := c.post(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolve alert %d: %w", id, err)
	}

	var resp ResolveAlertResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal resolve alert: %w", err)
	}

	// The backend reports unknown IDs with a 200 and an error field.
	if resp.Error != "" {
		return nil, fmt.Errorf("resolve alert %d: %w: %s", id, ErrAlertNotFound, resp.Error)
	}

	return &resp, nil
}
