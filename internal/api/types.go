package api

import "github.com/rickgao/portfolio-sync/internal/model"

// AllocationResponse from GET /portfolio/distribuicao
type AllocationResponse struct {
	Allocation *[]model.AllocationEntry `json:"distribuicao"`
}

// HoldingsResponse from GET /portfolio/posicoes
type HoldingsResponse struct {
	Positions *[]model.Position `json:"posicoes"`
}

// TransactionsResponse from GET /portfolio/transacoes
type TransactionsResponse struct {
	Transactions *[]model.Transaction `json:"transacoes"`
}

// AlertsResponse from GET /alerts/
type AlertsResponse struct {
	Alerts *[]model.Alert `json:"alertas"`
}

// DiversificationResponse from GET /portfolio/configuracao-diversificacao
type DiversificationResponse struct {
	Targets []model.DiversificationTarget `json:"configuracao"`
}

// ResolveAlertResponse from POST /alerts/{id}/resolver
type ResolveAlertResponse struct {
	Message string `json:"message"`
	AlertID int64  `json:"alerta_id"`
	Error   string `json:"error,omitempty"`
}

// GetAlertsOptions configures a GetAlerts request.
type GetAlertsOptions struct {
	Limit    int
	Resolved *bool // nil = both resolved and open alerts
}
