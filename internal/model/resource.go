package model

import (
	"fmt"
	"strings"
)

// Resource identifies one of the tracked pieces of portfolio data.
type Resource int

const (
	Balance Resource = iota
	Allocation
	Holdings
	Transactions
	Alerts
)

// AllResources lists every resource in refresh order.
var AllResources = []Resource{Balance, Allocation, Holdings, Transactions, Alerts}

var resourceNames = [...]string{
	Balance:      "balance",
	Allocation:   "allocation",
	Holdings:     "holdings",
	Transactions: "transactions",
	Alerts:       "alerts",
}

// Backend names, also used as the "type" of pushed frames.
var resourceWireNames = [...]string{
	Balance:      "carteira",
	Allocation:   "distribuicao",
	Holdings:     "posicoes",
	Transactions: "transacoes",
	Alerts:       "alertas",
}

// Valid reports whether r is one of the enumerated resources.
func (r Resource) Valid() bool {
	return r >= Balance && r <= Alerts
}

// String returns the English resource name.
func (r Resource) String() string {
	if !r.Valid() {
		return fmt.Sprintf("resource(%d)", int(r))
	}
	return resourceNames[r]
}

// WireName returns the name the backend uses for r.
func (r Resource) WireName() string {
	if !r.Valid() {
		return ""
	}
	return resourceWireNames[r]
}

// ParseResource resolves an English or backend resource name.
func ParseResource(name string) (Resource, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range AllResources {
		if name == resourceNames[r] || name == resourceWireNames[r] {
			return r, true
		}
	}
	return 0, false
}

// Source tells which data path produced a store write.
type Source string

const (
	SourceSnapshot Source = "snapshot" // REST pull by the refresh scheduler
	SourcePush     Source = "push"     // Frame received on the WebSocket channel
)

// ConnectionState is the lifecycle state of the duplex channel.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
