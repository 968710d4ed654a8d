package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixparts/fixparts/internal/domain"
)

// Postgres implements Store on a pgx pool. Per-entity mutual exclusion
// comes from row locks: inside Update, order and wallet reads use
// SELECT ... FOR UPDATE so concurrent operations against the same
// entity serialize, and the whole unit commits or rolls back together.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(&pgTx{tx: tx, lock: true}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx   pgx.Tx
	lock bool
}

func (t *pgTx) forUpdate() string {
	if t.lock {
		return " FOR UPDATE"
	}
	return ""
}

const orderCols = `id, client_id, master_id, kind, title, description,
	proposed_price, agreed_price, status, is_active_search, use_escrow,
	deleted_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.ClientID, &o.MasterID, &o.Kind, &o.Title, &o.Description,
		&o.ProposedPrice, &o.AgreedPrice, &o.Status, &o.IsActiveSearch, &o.UseEscrow,
		&o.DeletedAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (t *pgTx) Order(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(t.tx.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = $1`+t.forUpdate(), id))
}

func (t *pgTx) PutOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (`+orderCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			master_id = EXCLUDED.master_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			proposed_price = EXCLUDED.proposed_price,
			agreed_price = EXCLUDED.agreed_price,
			status = EXCLUDED.status,
			is_active_search = EXCLUDED.is_active_search,
			use_escrow = EXCLUDED.use_escrow,
			deleted_at = EXCLUDED.deleted_at,
			updated_at = NOW()`,
		o.ID, o.ClientID, o.MasterID, o.Kind, o.Title, o.Description,
		o.ProposedPrice, o.AgreedPrice, o.Status, o.IsActiveSearch, o.UseEscrow,
		o.DeletedAt, o.CreatedAt, o.UpdatedAt)
	return err
}

const proposalCols = `id, order_id, master_id, price, message, status, created_at`

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var p domain.Proposal
	err := row.Scan(&p.ID, &p.OrderID, &p.MasterID, &p.Price, &p.Message, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) Proposal(ctx context.Context, id string) (*domain.Proposal, error) {
	return scanProposal(t.tx.QueryRow(ctx,
		`SELECT `+proposalCols+` FROM proposals WHERE id = $1`, id))
}

func (t *pgTx) ProposalsByOrder(ctx context.Context, orderID string) ([]*domain.Proposal, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+proposalCols+` FROM proposals WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Proposal
	for rows.Next() {
		var p domain.Proposal
		if err := rows.Scan(&p.ID, &p.OrderID, &p.MasterID, &p.Price, &p.Message, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (t *pgTx) PutProposal(ctx context.Context, p *domain.Proposal) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO proposals (`+proposalCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		p.ID, p.OrderID, p.MasterID, p.Price, p.Message, p.Status, p.CreatedAt)
	return err
}

const txCols = `id, reference, type, amount, currency, from_user_id, to_user_id,
	platform_commission, commission_rate, status, description, created_at, completed_at`

func scanTxn(row pgx.Row) (*domain.FinancialTransaction, error) {
	var x domain.FinancialTransaction
	err := row.Scan(&x.ID, &x.Reference, &x.Type, &x.Amount, &x.Currency,
		&x.FromUserID, &x.ToUserID, &x.PlatformCommission, &x.CommissionRate,
		&x.Status, &x.Description, &x.CreatedAt, &x.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func (t *pgTx) Transaction(ctx context.Context, id string) (*domain.FinancialTransaction, error) {
	return scanTxn(t.tx.QueryRow(ctx,
		`SELECT `+txCols+` FROM transactions WHERE id = $1`+t.forUpdate(), id))
}

func (t *pgTx) SaleByReference(ctx context.Context, ref string) (*domain.FinancialTransaction, error) {
	return scanTxn(t.tx.QueryRow(ctx,
		`SELECT `+txCols+` FROM transactions
		 WHERE reference = $1 AND type = 'sale' AND status <> 'failed'
		 ORDER BY created_at LIMIT 1`, ref))
}

func (t *pgTx) PutTransaction(ctx context.Context, x *domain.FinancialTransaction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO transactions (`+txCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at`,
		x.ID, x.Reference, x.Type, x.Amount, x.Currency, x.FromUserID, x.ToUserID,
		x.PlatformCommission, x.CommissionRate, x.Status, x.Description, x.CreatedAt, x.CompletedAt)
	return err
}

func (t *pgTx) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	// Lazy creation, then lock the row for the rest of the unit.
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, pending, total_earned, total_spent, created_at, updated_at)
		VALUES ($1, 0, 0, 0, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return nil, err
	}
	var w domain.Wallet
	err := t.tx.QueryRow(ctx, `
		SELECT user_id, balance, pending, total_earned, total_spent, created_at, updated_at
		FROM wallets WHERE user_id = $1`+t.forUpdate(), userID).
		Scan(&w.UserID, &w.Balance, &w.Pending, &w.TotalEarned, &w.TotalSpent, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (t *pgTx) PutWallet(ctx context.Context, w *domain.Wallet) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE wallets SET balance = $2, pending = $3, total_earned = $4,
			total_spent = $5, updated_at = NOW()
		WHERE user_id = $1`,
		w.UserID, w.Balance, w.Pending, w.TotalEarned, w.TotalSpent)
	return err
}

const exchangeCols = `id, part_a_id, part_b_id, proposer_id, responder_id,
	price_difference, status, proposer_confirmed, responder_confirmed, created_at, settled_at`

func (t *pgTx) Exchange(ctx context.Context, id string) (*domain.Exchange, error) {
	var e domain.Exchange
	err := t.tx.QueryRow(ctx,
		`SELECT `+exchangeCols+` FROM exchanges WHERE id = $1`+t.forUpdate(), id).
		Scan(&e.ID, &e.PartAID, &e.PartBID, &e.ProposerID, &e.ResponderID,
			&e.PriceDifference, &e.Status, &e.ProposerConfirmed, &e.ResponderConfirmed,
			&e.CreatedAt, &e.SettledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *pgTx) PutExchange(ctx context.Context, e *domain.Exchange) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO exchanges (`+exchangeCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			proposer_confirmed = EXCLUDED.proposer_confirmed,
			responder_confirmed = EXCLUDED.responder_confirmed,
			settled_at = EXCLUDED.settled_at`,
		e.ID, e.PartAID, e.PartBID, e.ProposerID, e.ResponderID,
		e.PriceDifference, e.Status, e.ProposerConfirmed, e.ResponderConfirmed,
		e.CreatedAt, e.SettledAt)
	return err
}

const disputeCols = `id, order_id, filer_id, reason, status, resolution, notes,
	resolved_by, created_at, resolved_at`

func (t *pgTx) Dispute(ctx context.Context, id string) (*domain.Dispute, error) {
	var d domain.Dispute
	err := t.tx.QueryRow(ctx,
		`SELECT `+disputeCols+` FROM disputes WHERE id = $1`+t.forUpdate(), id).
		Scan(&d.ID, &d.OrderID, &d.FilerID, &d.Reason, &d.Status, &d.Resolution,
			&d.Notes, &d.ResolvedBy, &d.CreatedAt, &d.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (t *pgTx) PutDispute(ctx context.Context, d *domain.Dispute) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO disputes (`+disputeCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			resolution = EXCLUDED.resolution,
			notes = EXCLUDED.notes,
			resolved_by = EXCLUDED.resolved_by,
			resolved_at = EXCLUDED.resolved_at`,
		d.ID, d.OrderID, d.FilerID, d.Reason, d.Status, d.Resolution, d.Notes,
		d.ResolvedBy, d.CreatedAt, d.ResolvedAt)
	return err
}

func (p *Postgres) collectOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.ClientID, &o.MasterID, &o.Kind, &o.Title, &o.Description,
			&o.ProposedPrice, &o.AgreedPrice, &o.Status, &o.IsActiveSearch, &o.UseEscrow,
			&o.DeletedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return p.collectOrders(ctx,
		`SELECT `+orderCols+` FROM orders
		 WHERE client_id = $1 OR master_id = $1 ORDER BY created_at DESC`, userID)
}

func (p *Postgres) OpenOrders(ctx context.Context) ([]domain.Order, error) {
	return p.collectOrders(ctx,
		`SELECT `+orderCols+` FROM orders
		 WHERE status IN ('open','active_search','proposed')
		   AND is_active_search AND deleted_at IS NULL
		 ORDER BY created_at DESC`)
}

func (p *Postgres) collectTxns(ctx context.Context, query string, args ...any) ([]domain.FinancialTransaction, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.FinancialTransaction
	for rows.Next() {
		var x domain.FinancialTransaction
		if err := rows.Scan(&x.ID, &x.Reference, &x.Type, &x.Amount, &x.Currency,
			&x.FromUserID, &x.ToUserID, &x.PlatformCommission, &x.CommissionRate,
			&x.Status, &x.Description, &x.CreatedAt, &x.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func (p *Postgres) TransactionsByUser(ctx context.Context, userID string) ([]domain.FinancialTransaction, error) {
	return p.collectTxns(ctx,
		`SELECT `+txCols+` FROM transactions
		 WHERE from_user_id = $1 OR to_user_id = $1 ORDER BY created_at DESC`, userID)
}

func (p *Postgres) AllTransactions(ctx context.Context) ([]domain.FinancialTransaction, error) {
	return p.collectTxns(ctx,
		`SELECT `+txCols+` FROM transactions ORDER BY created_at DESC`)
}

func (p *Postgres) AllWallets(ctx context.Context) ([]domain.Wallet, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, balance, pending, total_earned, total_spent, created_at, updated_at
		FROM wallets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.UserID, &w.Balance, &w.Pending, &w.TotalEarned,
			&w.TotalSpent, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (p *Postgres) AllDisputes(ctx context.Context) ([]domain.Dispute, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+disputeCols+` FROM disputes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Dispute
	for rows.Next() {
		var d domain.Dispute
		if err := rows.Scan(&d.ID, &d.OrderID, &d.FilerID, &d.Reason, &d.Status,
			&d.Resolution, &d.Notes, &d.ResolvedBy, &d.CreatedAt, &d.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := p.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return v, err
}

func (p *Postgres) PutSetting(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}
