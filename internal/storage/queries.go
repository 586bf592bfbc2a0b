package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"welth/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run
// standalone or inside an atomic unit.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries bundles all SQL against the ledger schema.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns the same query set bound to an open transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// --- users ---

func (q *Queries) CreateUser(ctx context.Context, u core.User) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, token_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.TokenHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (q *Queries) GetUser(ctx context.Context, id string) (*core.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT id, email, name, token_hash, created_at FROM users WHERE id = ?`, id)
	var u core.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.TokenHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (q *Queries) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, email, name, token_hash, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.TokenHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- accounts ---

const accountColumns = `id, user_id, name, type, balance_cents, is_default, created_at, updated_at`

func scanAccount(s interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance.Cents,
		&a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (q *Queries) InsertAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Type, a.Balance.Cents, a.IsDefault, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, id, userID string) (*core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

func (q *Queries) GetDefaultAccount(ctx context.Context, userID string) (*core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND is_default = 1`, userID)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get default account: %w", err)
	}
	return &a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (q *Queries) CountAccounts(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (q *Queries) CountTransactions(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (q *Queries) ClearDefaultAccounts(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET is_default = 0, updated_at = ? WHERE user_id = ? AND is_default = 1`,
		time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("clear default accounts: %w", err)
	}
	return nil
}

func (q *Queries) MarkAccountDefault(ctx context.Context, id, userID string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET is_default = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("mark account default: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ApplyBalanceDelta adjusts an account balance by deltaCents. The guard
// refuses any update that would drive the balance below zero.
func (q *Queries) ApplyBalanceDelta(ctx context.Context, accountID string, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ?, updated_at = ?
		 WHERE id = ? AND balance_cents + ? >= 0`,
		deltaCents, time.Now().UTC(), accountID, deltaCents)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if n == 0 {
		var exists int
		if err := q.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE id = ?`, accountID).Scan(&exists); err != nil {
			return fmt.Errorf("apply balance delta: %w", err)
		}
		if exists == 0 {
			return core.ErrNotFound
		}
		return core.ErrInsufficientFunds
	}
	return nil
}

// --- transactions ---

const transactionColumns = `id, user_id, account_id, type, amount_cents, date, description,
	category, receipt_url, is_recurring, recurring_interval, last_processed,
	next_recurring_date, status, created_at, updated_at`

func scanTransaction(s interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var interval sql.NullString
	var lastProcessed, nextDate sql.NullTime
	err := s.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Type, &t.Amount.Cents, &t.Date,
		&t.Description, &t.Category, &t.ReceiptURL, &t.IsRecurring, &interval,
		&lastProcessed, &nextDate, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if interval.Valid {
		t.RecurringInterval = core.RecurringInterval(interval.String)
	}
	if lastProcessed.Valid {
		t.LastProcessed = &lastProcessed.Time
	}
	if nextDate.Valid {
		t.NextRecurringDate = &nextDate.Time
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, t.Type, t.Amount.Cents, t.Date, t.Description,
		t.Category, t.ReceiptURL, t.IsRecurring, nullString(string(t.RecurringInterval)),
		nullTime(t.LastProcessed), nullTime(t.NextRecurringDate), t.Status,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, id, userID string) (*core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET type = ?, amount_cents = ?, date = ?, description = ?,
		 category = ?, receipt_url = ?, is_recurring = ?, recurring_interval = ?,
		 next_recurring_date = ?, status = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		t.Type, t.Amount.Cents, t.Date, t.Description, t.Category, t.ReceiptURL,
		t.IsRecurring, nullString(string(t.RecurringInterval)),
		nullTime(t.NextRecurringDate), t.Status, t.UpdatedAt, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AdvanceRecurring moves a recurring template forward after an
// occurrence has been materialized. The update is conditional on the
// template's expected next_recurring_date so that two concurrent
// processors cannot both commit: the loser matches zero rows.
func (q *Queries) AdvanceRecurring(ctx context.Context, id string, expectedNext *time.Time, lastProcessed, nextDate time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if expectedNext == nil {
		res, err = q.db.ExecContext(ctx,
			`UPDATE transactions SET last_processed = ?, next_recurring_date = ?, updated_at = ?
			 WHERE id = ? AND next_recurring_date IS NULL`,
			lastProcessed, nextDate, time.Now().UTC(), id)
	} else {
		res, err = q.db.ExecContext(ctx,
			`UPDATE transactions SET last_processed = ?, next_recurring_date = ?, updated_at = ?
			 WHERE id = ? AND next_recurring_date = ?`,
			lastProcessed, nextDate, time.Now().UTC(), id, *expectedNext)
	}
	if err != nil {
		return false, fmt.Errorf("advance recurring: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance recurring: %w", err)
	}
	return n > 0, nil
}

// FindDueRecurring selects every completed recurring template that has
// never been processed or whose next occurrence time has passed.
func (q *Queries) FindDueRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE is_recurring = 1 AND status = ?
		   AND (last_processed IS NULL OR next_recurring_date <= ?)`,
		core.StatusCompleted, now)
	if err != nil {
		return nil, fmt.Errorf("find due recurring: %w", err)
	}
	defer rows.Close()

	var due []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		due = append(due, t)
	}
	return due, rows.Err()
}

// ListTransactions returns a user's transactions, optionally scoped to
// one account, newest first.
func (q *Queries) ListTransactions(ctx context.Context, userID, accountID string, limit, offset int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if accountID != "" {
		query += ` AND account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ListTransactionsInRange returns a user's transactions with date in
// [from, to], across all accounts.
func (q *Queries) ListTransactionsInRange(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// AggregateExpenses sums EXPENSE cents for one account over [from, to].
func (q *Queries) AggregateExpenses(ctx context.Context, accountID string, from, to time.Time) (int64, error) {
	var total sql.NullInt64
	err := q.db.QueryRowContext(ctx,
		`SELECT SUM(amount_cents) FROM transactions
		 WHERE account_id = ? AND type = ? AND date >= ? AND date <= ?`,
		accountID, core.Expense, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("aggregate expenses: %w", err)
	}
	return total.Int64, nil
}

// --- budgets ---

const budgetColumns = `id, user_id, amount_cents, last_alert_sent, created_at, updated_at`

func scanBudget(s interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	var lastAlert sql.NullTime
	err := s.Scan(&b.ID, &b.UserID, &b.Amount.Cents, &lastAlert, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if lastAlert.Valid {
		b.LastAlertSent = &lastAlert.Time
	}
	return b, nil
}

func (q *Queries) GetBudget(ctx context.Context, userID string) (*core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ?`, userID)
	b, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (q *Queries) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET amount_cents = excluded.amount_cents,
		 updated_at = excluded.updated_at`,
		b.ID, b.UserID, b.Amount.Cents, nullTime(b.LastAlertSent), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (q *Queries) SetBudgetAlertSent(ctx context.Context, budgetID string, at time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET last_alert_sent = ?, updated_at = ? WHERE id = ?`,
		at, time.Now().UTC(), budgetID)
	if err != nil {
		return fmt.Errorf("set budget alert sent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
