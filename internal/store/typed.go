package store

import "github.com/rickgao/portfolio-sync/internal/model"

// Balance returns the wallet summary, or false while unloaded.
func (s *Store) Balance() (model.Wallet, bool) {
	return typed[model.Wallet](s, model.Balance)
}

// Allocation returns the allocation entries, or false while unloaded.
func (s *Store) Allocation() ([]model.AllocationEntry, bool) {
	return typed[[]model.AllocationEntry](s, model.Allocation)
}

// Holdings returns the open positions, or false while unloaded.
func (s *Store) Holdings() ([]model.Position, bool) {
	return typed[[]model.Position](s, model.Holdings)
}

// Transactions returns the recent transactions, or false while unloaded.
func (s *Store) Transactions() ([]model.Transaction, bool) {
	return typed[[]model.Transaction](s, model.Transactions)
}

// Alerts returns the alerts, or false while unloaded. A loaded but empty
// list is returned as a non-nil empty slice.
func (s *Store) Alerts() ([]model.Alert, bool) {
	return typed[[]model.Alert](s, model.Alerts)
}

func typed[T any](s *Store, r model.Resource) (T, bool) {
	var zero T
	e, ok := s.Read(r)
	if !ok {
		return zero, false
	}
	v, ok := e.Value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
