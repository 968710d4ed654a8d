package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fixparts/fixparts/internal/domain"
)

// Memory is the in-memory Store used by tests and local runs. A single
// mutex serializes Update calls and writes are staged in an overlay
// that is folded into the base maps only when fn succeeds, giving the
// same all-or-nothing visibility as a database transaction.
type Memory struct {
	mu        sync.RWMutex
	orders    map[string]*domain.Order
	proposals map[string]*domain.Proposal
	txs       map[string]*domain.FinancialTransaction
	wallets   map[string]*domain.Wallet
	exchanges map[string]*domain.Exchange
	disputes  map[string]*domain.Dispute
	settings  map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[string]*domain.Order),
		proposals: make(map[string]*domain.Proposal),
		txs:       make(map[string]*domain.FinancialTransaction),
		wallets:   make(map[string]*domain.Wallet),
		exchanges: make(map[string]*domain.Exchange),
		disputes:  make(map[string]*domain.Dispute),
		settings:  make(map[string]string),
	}
}

func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newMemTx(m)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(newMemTx(m))
}

type memTx struct {
	base *Memory

	orders    map[string]*domain.Order
	proposals map[string]*domain.Proposal
	txs       map[string]*domain.FinancialTransaction
	wallets   map[string]*domain.Wallet
	exchanges map[string]*domain.Exchange
	disputes  map[string]*domain.Dispute
}

func newMemTx(m *Memory) *memTx {
	return &memTx{
		base:      m,
		orders:    make(map[string]*domain.Order),
		proposals: make(map[string]*domain.Proposal),
		txs:       make(map[string]*domain.FinancialTransaction),
		wallets:   make(map[string]*domain.Wallet),
		exchanges: make(map[string]*domain.Exchange),
		disputes:  make(map[string]*domain.Dispute),
	}
}

func (t *memTx) commit() {
	for id, o := range t.orders {
		t.base.orders[id] = o
	}
	for id, p := range t.proposals {
		t.base.proposals[id] = p
	}
	for id, x := range t.txs {
		t.base.txs[id] = x
	}
	for id, w := range t.wallets {
		t.base.wallets[id] = w
	}
	for id, e := range t.exchanges {
		t.base.exchanges[id] = e
	}
	for id, d := range t.disputes {
		t.base.disputes[id] = d
	}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	if o.ProposedPrice != nil {
		v := *o.ProposedPrice
		c.ProposedPrice = &v
	}
	if o.AgreedPrice != nil {
		v := *o.AgreedPrice
		c.AgreedPrice = &v
	}
	if o.DeletedAt != nil {
		v := *o.DeletedAt
		c.DeletedAt = &v
	}
	return &c
}

func cloneTxn(x *domain.FinancialTransaction) *domain.FinancialTransaction {
	c := *x
	if x.CompletedAt != nil {
		v := *x.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}

func cloneExchange(e *domain.Exchange) *domain.Exchange {
	c := *e
	if e.SettledAt != nil {
		v := *e.SettledAt
		c.SettledAt = &v
	}
	return &c
}

func cloneDispute(d *domain.Dispute) *domain.Dispute {
	c := *d
	if d.ResolvedAt != nil {
		v := *d.ResolvedAt
		c.ResolvedAt = &v
	}
	return &c
}

func (t *memTx) Order(ctx context.Context, id string) (*domain.Order, error) {
	if o, ok := t.orders[id]; ok {
		return cloneOrder(o), nil
	}
	if o, ok := t.base.orders[id]; ok {
		return cloneOrder(o), nil
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) PutOrder(ctx context.Context, o *domain.Order) error {
	t.orders[o.ID] = cloneOrder(o)
	return nil
}

func (t *memTx) Proposal(ctx context.Context, id string) (*domain.Proposal, error) {
	if p, ok := t.proposals[id]; ok {
		c := *p
		return &c, nil
	}
	if p, ok := t.base.proposals[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) ProposalsByOrder(ctx context.Context, orderID string) ([]*domain.Proposal, error) {
	seen := make(map[string]bool)
	var out []*domain.Proposal
	for id, p := range t.proposals {
		if p.OrderID == orderID {
			c := *p
			out = append(out, &c)
		}
		seen[id] = true
	}
	for id, p := range t.base.proposals {
		if seen[id] || p.OrderID != orderID {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) PutProposal(ctx context.Context, p *domain.Proposal) error {
	c := *p
	t.proposals[p.ID] = &c
	return nil
}

func (t *memTx) Transaction(ctx context.Context, id string) (*domain.FinancialTransaction, error) {
	if x, ok := t.txs[id]; ok {
		return cloneTxn(x), nil
	}
	if x, ok := t.base.txs[id]; ok {
		return cloneTxn(x), nil
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) SaleByReference(ctx context.Context, ref string) (*domain.FinancialTransaction, error) {
	match := func(x *domain.FinancialTransaction) bool {
		return x.Type == domain.TxSale && x.Reference == ref && x.Status != domain.TxFailed
	}
	for _, x := range t.txs {
		if match(x) {
			return cloneTxn(x), nil
		}
	}
	for id, x := range t.base.txs {
		if _, staged := t.txs[id]; staged {
			continue
		}
		if match(x) {
			return cloneTxn(x), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) PutTransaction(ctx context.Context, x *domain.FinancialTransaction) error {
	t.txs[x.ID] = cloneTxn(x)
	return nil
}

func (t *memTx) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	if w, ok := t.wallets[userID]; ok {
		c := *w
		return &c, nil
	}
	if w, ok := t.base.wallets[userID]; ok {
		c := *w
		return &c, nil
	}
	now := time.Now()
	w := &domain.Wallet{UserID: userID, CreatedAt: now, UpdatedAt: now}
	t.wallets[userID] = w
	c := *w
	return &c, nil
}

func (t *memTx) PutWallet(ctx context.Context, w *domain.Wallet) error {
	c := *w
	t.wallets[w.UserID] = &c
	return nil
}

func (t *memTx) Exchange(ctx context.Context, id string) (*domain.Exchange, error) {
	if e, ok := t.exchanges[id]; ok {
		return cloneExchange(e), nil
	}
	if e, ok := t.base.exchanges[id]; ok {
		return cloneExchange(e), nil
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) PutExchange(ctx context.Context, e *domain.Exchange) error {
	t.exchanges[e.ID] = cloneExchange(e)
	return nil
}

func (t *memTx) Dispute(ctx context.Context, id string) (*domain.Dispute, error) {
	if d, ok := t.disputes[id]; ok {
		return cloneDispute(d), nil
	}
	if d, ok := t.base.disputes[id]; ok {
		return cloneDispute(d), nil
	}
	return nil, domain.ErrNotFound
}

func (t *memTx) PutDispute(ctx context.Context, d *domain.Dispute) error {
	t.disputes[d.ID] = cloneDispute(d)
	return nil
}

func (m *Memory) OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.ClientID == userID || o.MasterID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) OpenOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.Open() && o.IsActiveSearch && o.DeletedAt == nil {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) TransactionsByUser(ctx context.Context, userID string) ([]domain.FinancialTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.FinancialTransaction
	for _, x := range m.txs {
		if x.FromUserID == userID || x.ToUserID == userID {
			out = append(out, *cloneTxn(x))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AllTransactions(ctx context.Context) ([]domain.FinancialTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.FinancialTransaction
	for _, x := range m.txs {
		out = append(out, *cloneTxn(x))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AllWallets(ctx context.Context) ([]domain.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Wallet
	for _, w := range m.wallets {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *Memory) AllDisputes(ctx context.Context) ([]domain.Dispute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Dispute
	for _, d := range m.disputes {
		out = append(out, *cloneDispute(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Setting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *Memory) PutSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.settings[key] = value
	m.mu.Unlock()
	return nil
}
