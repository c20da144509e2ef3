package model

// -----------------------------------------------------------------------------
// Portfolio Types
// -----------------------------------------------------------------------------

// Wallet is the wallet summary (GET /api/portfolio/carteira).
type Wallet struct {
	Available float64    `json:"saldo_disponivel"` // Cash available for new orders
	Total     float64    `json:"valor_total"`      // Total wallet value
	UpdatedAt *Timestamp `json:"updated_at,omitempty"`
}

// AllocationEntry is the share of the wallet held in one asset type.
type AllocationEntry struct {
	AssetType  string  `json:"tipo_ativo"`  // e.g. "Acao", "FII", "Renda Fixa"
	Percentage float64 `json:"porcentagem"` // 0-100
	Value      float64 `json:"valor"`       // Market value of the bucket
}

// Position is a single holding.
type Position struct {
	ID            int64   `json:"id,omitempty"`
	AssetCode     string  `json:"ativo_codigo"`
	AssetName     string  `json:"ativo_nome"`
	AssetType     string  `json:"tipo,omitempty"`
	Quantity      float64 `json:"quantidade"`
	AveragePrice  float64 `json:"preco_medio,omitempty"`
	CurrentPrice  float64 `json:"preco_atual"`
	TotalValue    float64 `json:"valor_total"`
	ChangePercent float64 `json:"variacao_percentual"`
}

// -----------------------------------------------------------------------------
// History Types
// -----------------------------------------------------------------------------

// TradeSide is the direction of a transaction as reported by the backend.
type TradeSide string

const (
	SideBuy  TradeSide = "Compra"
	SideSell TradeSide = "Venda"
)

// Transaction is an executed buy or sell.
type Transaction struct {
	ID         int64     `json:"id,omitempty"`
	AssetCode  string    `json:"ativo_codigo"`
	AssetName  string    `json:"ativo_nome"`
	Side       TradeSide `json:"tipo"`
	Quantity   float64   `json:"quantidade"`
	UnitPrice  float64   `json:"preco_unitario,omitempty"`
	TotalValue float64   `json:"valor_total"`
	Timestamp  Timestamp `json:"timestamp"`
}

// Alert is a notice raised by one of the backend agents.
type Alert struct {
	ID        int64     `json:"id,omitempty"`
	Origin    string    `json:"agente_origem"` // Agent that raised the alert
	Kind      string    `json:"tipo,omitempty"`
	Message   string    `json:"mensagem"`
	Severity  string    `json:"severidade"` // "info", "warning", "critical"
	Resolved  bool      `json:"resolvido"`
	Timestamp Timestamp `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Service Types
// -----------------------------------------------------------------------------

// DiversificationTarget is the configured target share for an asset type.
type DiversificationTarget struct {
	AssetType        string  `json:"tipo_ativo"`
	TargetPercentage float64 `json:"porcentagem_alvo"`
	Tolerance        float64 `json:"tolerancia"`
}

// ServiceStats are the backend's aggregate counters (GET /api/status).
type ServiceStats struct {
	Assets       int `json:"total_ativos"`
	Positions    int `json:"total_posicoes"`
	Transactions int `json:"total_transacoes"`
	OpenAlerts   int `json:"alertas_ativos"`
}

// ServiceStatus is the backend status summary.
type ServiceStatus struct {
	Wallet Wallet       `json:"carteira"`
	Stats  ServiceStats `json:"estatisticas"`
}
