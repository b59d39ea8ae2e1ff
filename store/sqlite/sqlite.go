/*
Package sqlite provides a SQLite-backed settlement.TxStore.

KEY TABLES:
  accounts:           One row per user: available, blocked, points
  ledger_entries:     Append-only credit log (deposit, block, release, consume, refund)
  point_transactions: Append-only points log
  slots:              Slot registry
  enrollments:        One row per spot request, status-tracked
  club_configs:       Per-club rules as JSON (versioned)

APPEND-ONLY ENFORCEMENT:
  ledger_entries and point_transactions are never updated or deleted outside
  Reset. Corrections are new entries.

INDEXES:
  - idx_unique_active_enrollment: a user holds at most one active spot per option
  - UNIQUE(slot_id, option_size, spot_index): spot numbers are never reused
  - idx_ledger_entries_user, idx_point_transactions_user: per-user logs (hot path)

MONEY:
  decimal.Decimal values are stored as TEXT and round-trip exactly.

CONCURRENCY:
  One connection, and a mutex around every transaction. SQLite has a single
  writer; serializing here avoids SQLITE_BUSY under load.

USAGE:
  store, err := sqlite.New("./data/slots.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine, err := settlement.New(store)

SEE ALSO:
  - settlement/store.go: TxStore and Tx
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/slot-engine/ledger"
	"github.com/warp/slot-engine/policy"
	"github.com/warp/slot-engine/settlement"
	"github.com/warp/slot-engine/slots"
)

// Store implements settlement.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ settlement.TxStore = (*Store)(nil)

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every ":memory:" connection is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT PRIMARY KEY,
		available TEXT NOT NULL,
		blocked TEXT NOT NULL,
		points TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Credit log (append-only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		available_delta TEXT NOT NULL,
		blocked_delta TEXT NOT NULL,
		reference_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user
		ON ledger_entries(user_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_reference
		ON ledger_entries(reference_id) WHERE reference_id IS NOT NULL;

	-- Points log (append-only)
	CREATE TABLE IF NOT EXISTS point_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		points TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		description TEXT,
		reference_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_point_transactions_user
		ON point_transactions(user_id);

	CREATE TABLE IF NOT EXISTS slots (
		id TEXT PRIMARY KEY,
		club_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT 'UTC',
		total_price TEXT NOT NULL,
		option_sizes_json TEXT NOT NULL,
		level TEXT,
		category TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		confirmed_option INTEGER NOT NULL DEFAULT 0,
		settled_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_slots_club_start
		ON slots(club_id, start_time);

	CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		slot_id TEXT NOT NULL REFERENCES slots(id),
		user_id TEXT NOT NULL,
		option_size INTEGER NOT NULL,
		spot_index INTEGER NOT NULL,
		status TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		amount_blocked TEXT NOT NULL,
		points_spent TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(slot_id, option_size, spot_index)
	);

	-- CRITICAL: one active spot per user per option.
	-- Hedging across options of the same slot stays allowed.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_active_enrollment
		ON enrollments(slot_id, option_size, user_id)
		WHERE status IN ('pending', 'confirmed');

	CREATE INDEX IF NOT EXISTS idx_enrollments_slot
		ON enrollments(slot_id, option_size, spot_index);
	CREATE INDEX IF NOT EXISTS idx_enrollments_user
		ON enrollments(user_id);

	CREATE TABLE IF NOT EXISTS club_configs (
		club_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (settlement.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(settlement.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txStore reads and writes through the open transaction only.
type txStore struct {
	q querier
}

var _ settlement.Tx = (*txStore)(nil)

// =============================================================================
// LEDGER STORE
// =============================================================================

func (ts *txStore) GetAccount(ctx context.Context, userID ledger.UserID) (ledger.Account, error) {
	var (
		account   ledger.Account
		updatedAt string
	)
	err := ts.q.QueryRowContext(ctx, `
		SELECT user_id, available, blocked, points, updated_at
		FROM accounts WHERE user_id = ?
	`, userID).Scan(&account.UserID, &account.Available, &account.Blocked, &account.Points, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	account.UpdatedAt = parseTime(updatedAt)
	return account, nil
}

func (ts *txStore) SaveAccount(ctx context.Context, account ledger.Account) error {
	_, err := ts.q.ExecContext(ctx, `
		INSERT INTO accounts (user_id, available, blocked, points, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			available = excluded.available,
			blocked = excluded.blocked,
			points = excluded.points,
			updated_at = excluded.updated_at
	`, account.UserID, account.Available, account.Blocked, account.Points, formatTime(account.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (ts *txStore) AppendEntry(ctx context.Context, e ledger.Entry) error {
	_, err := ts.q.ExecContext(ctx, `
		INSERT INTO ledger_entries
		(id, user_id, entry_type, amount, available_delta, blocked_delta, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Type, e.Amount, e.AvailableDelta, e.BlockedDelta, nullString(e.ReferenceID), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (ts *txStore) AppendPointTransaction(ctx context.Context, p ledger.PointTransaction) error {
	_, err := ts.q.ExecContext(ctx, `
		INSERT INTO point_transactions
		(id, user_id, points, tx_type, description, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.UserID, p.Points, p.Type, nullString(p.Description), nullString(p.ReferenceID), formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append point transaction: %w", err)
	}
	return nil
}

func (ts *txStore) ListEntries(ctx context.Context, userID ledger.UserID) ([]ledger.Entry, error) {
	rows, err := ts.q.QueryContext(ctx, `
		SELECT id, user_id, entry_type, amount, available_delta, blocked_delta, reference_id, created_at
		FROM ledger_entries WHERE user_id = ?
		ORDER BY rowid
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e         ledger.Entry
			ref       sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.AvailableDelta, &e.BlockedDelta, &ref, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.ReferenceID = ref.String
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (ts *txStore) ListPointTransactions(ctx context.Context, userID ledger.UserID) ([]ledger.PointTransaction, error) {
	rows, err := ts.q.QueryContext(ctx, `
		SELECT id, user_id, points, tx_type, description, reference_id, created_at
		FROM point_transactions WHERE user_id = ?
		ORDER BY rowid
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query point transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.PointTransaction
	for rows.Next() {
		var (
			p         ledger.PointTransaction
			desc, ref sql.NullString
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Points, &p.Type, &desc, &ref, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan point transaction: %w", err)
		}
		p.Description = desc.String
		p.ReferenceID = ref.String
		p.CreatedAt = parseTime(createdAt)
		txs = append(txs, p)
	}
	return txs, rows.Err()
}

// =============================================================================
// SLOT STORE
// =============================================================================

func (ts *txStore) GetSlot(ctx context.Context, id slots.SlotID) (slots.Slot, error) {
	var (
		slot                          slots.Slot
		start, end, location, created string
		sizesJSON                     string
		level, category, settledAt    sql.NullString
	)
	err := ts.q.QueryRowContext(ctx, `
		SELECT id, club_id, start_time, end_time, location, total_price, option_sizes_json,
		       level, category, status, confirmed_option, settled_at, created_at
		FROM slots WHERE id = ?
	`, id).Scan(&slot.ID, &slot.ClubID, &start, &end, &location, &slot.TotalPrice, &sizesJSON,
		&level, &category, &slot.Status, &slot.ConfirmedOption, &settledAt, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return slots.Slot{}, fmt.Errorf("slot %s: %w", id, slots.ErrSlotNotFound)
	}
	if err != nil {
		return slots.Slot{}, fmt.Errorf("failed to get slot: %w", err)
	}
	if err := json.Unmarshal([]byte(sizesJSON), &slot.OptionSizes); err != nil {
		return slots.Slot{}, fmt.Errorf("failed to decode option sizes of %s: %w", id, err)
	}
	loc := loadLocation(location)
	slot.StartTime = parseTime(start).In(loc)
	slot.EndTime = parseTime(end).In(loc)
	slot.Level = level.String
	slot.Category = category.String
	if settledAt.Valid {
		slot.SettledAt = parseTime(settledAt.String)
	}
	slot.CreatedAt = parseTime(created)
	return slot, nil
}

func (ts *txStore) InsertSlot(ctx context.Context, slot slots.Slot) error {
	sizesJSON, err := json.Marshal(slot.OptionSizes)
	if err != nil {
		return fmt.Errorf("failed to encode option sizes: %w", err)
	}
	_, err = ts.q.ExecContext(ctx, `
		INSERT INTO slots
		(id, club_id, start_time, end_time, location, total_price, option_sizes_json,
		 level, category, status, confirmed_option, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, slot.ID, slot.ClubID, formatTime(slot.StartTime), formatTime(slot.EndTime),
		locationName(slot.StartTime), slot.TotalPrice, string(sizesJSON),
		nullString(slot.Level), nullString(slot.Category), slot.Status, slot.ConfirmedOption,
		formatTime(slot.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("slot %s: %w", slot.ID, slots.ErrSlotExists)
		}
		return fmt.Errorf("failed to insert slot: %w", err)
	}
	return nil
}

func (ts *txStore) SettleSlot(ctx context.Context, id slots.SlotID, optionSize int, at time.Time) error {
	res, err := ts.q.ExecContext(ctx, `
		UPDATE slots SET status = ?, confirmed_option = ?, settled_at = ?
		WHERE id = ? AND status = ?
	`, slots.SlotSettled, optionSize, formatTime(at), id, slots.SlotOpen)
	if err != nil {
		return fmt.Errorf("failed to settle slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := ts.GetSlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("slot %s: %w", id, slots.ErrSlotAlreadySettled)
}

func (ts *txStore) ExpireSlot(ctx context.Context, id slots.SlotID, at time.Time) error {
	res, err := ts.q.ExecContext(ctx, `
		UPDATE slots SET status = ?, settled_at = ?
		WHERE id = ? AND status = ?
	`, slots.SlotExpired, formatTime(at), id, slots.SlotOpen)
	if err != nil {
		return fmt.Errorf("failed to expire slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := ts.GetSlot(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("slot %s: %w", id, slots.ErrSlotAlreadySettled)
}

// ListOpenSlots filters on start time in Go; stored timestamps do not sort
// lexically when fractional seconds differ.
func (ts *txStore) ListOpenSlots(ctx context.Context, startedBy time.Time) ([]slots.Slot, error) {
	rows, err := ts.q.QueryContext(ctx, `SELECT id FROM slots WHERE status = ?`, slots.SlotOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open slots: %w", err)
	}
	var ids []slots.SlotID
	for rows.Next() {
		var id slots.SlotID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan slot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var out []slots.Slot
	for _, id := range ids {
		slot, err := ts.GetSlot(ctx, id)
		if err != nil {
			return nil, err
		}
		if !slot.StartTime.After(startedBy) {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (ts *txStore) InsertEnrollment(ctx context.Context, e slots.Enrollment) error {
	_, err := ts.q.ExecContext(ctx, `
		INSERT INTO enrollments
		(id, slot_id, user_id, option_size, spot_index, status, payment_method,
		 amount_blocked, points_spent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.SlotID, e.UserID, e.OptionSize, e.SpotIndex, e.Status, e.PaymentMethod,
		e.AmountBlocked, e.PointsSpent, formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		if isActiveEnrollmentError(err) {
			return fmt.Errorf("enrollment %s: %w", e.ID, slots.ErrDuplicateEnrollment)
		}
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}
	return nil
}

const enrollmentColumns = `id, slot_id, user_id, option_size, spot_index, status, payment_method,
	amount_blocked, points_spent, created_at, updated_at`

func (ts *txStore) GetEnrollment(ctx context.Context, id slots.EnrollmentID) (slots.Enrollment, error) {
	row := ts.q.QueryRowContext(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`, id)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return slots.Enrollment{}, fmt.Errorf("enrollment %s: %w", id, slots.ErrEnrollmentNotFound)
	}
	if err != nil {
		return slots.Enrollment{}, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

func (ts *txStore) ListEnrollments(ctx context.Context, slotID slots.SlotID) ([]slots.Enrollment, error) {
	rows, err := ts.q.QueryContext(ctx, `
		SELECT `+enrollmentColumns+` FROM enrollments
		WHERE slot_id = ?
		ORDER BY option_size, spot_index
	`, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	var out []slots.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (ts *txStore) UpdateEnrollmentStatus(ctx context.Context, id slots.EnrollmentID, from, to slots.EnrollmentStatus, at time.Time) error {
	res, err := ts.q.ExecContext(ctx, `
		UPDATE enrollments SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, to, formatTime(at), id, from)
	if err != nil {
		if isActiveEnrollmentError(err) {
			return fmt.Errorf("enrollment %s: %w", id, slots.ErrDuplicateEnrollment)
		}
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	current, err := ts.GetEnrollment(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("enrollment %s is %s, not %s: %w", id, current.Status, from, slots.ErrStatusConflict)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row rowScanner) (slots.Enrollment, error) {
	var (
		e                  slots.Enrollment
		created, updatedAt string
	)
	err := row.Scan(&e.ID, &e.SlotID, &e.UserID, &e.OptionSize, &e.SpotIndex, &e.Status, &e.PaymentMethod,
		&e.AmountBlocked, &e.PointsSpent, &created, &updatedAt)
	if err != nil {
		return slots.Enrollment{}, err
	}
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

// =============================================================================
// CLUB CONFIG STORE
// =============================================================================

func (ts *txStore) GetClubConfig(ctx context.Context, clubID string) (policy.ClubConfig, error) {
	var configJSON string
	err := ts.q.QueryRowContext(ctx, `SELECT config_json FROM club_configs WHERE club_id = ?`, clubID).Scan(&configJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return policy.ClubConfig{}, fmt.Errorf("club %s: %w", clubID, policy.ErrClubConfigNotFound)
	}
	if err != nil {
		return policy.ClubConfig{}, fmt.Errorf("failed to get club config: %w", err)
	}
	return policy.ParseClubConfig([]byte(configJSON))
}

func (ts *txStore) SaveClubConfig(ctx context.Context, cfg policy.ClubConfig) error {
	data, err := policy.MarshalClubConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode club config: %w", err)
	}
	now := formatTime(time.Now())
	_, err = ts.q.ExecContext(ctx, `
		INSERT INTO club_configs (club_id, config_json, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(club_id) DO UPDATE SET
			config_json = excluded.config_json,
			version = club_configs.version + 1,
			updated_at = excluded.updated_at
	`, cfg.ClubID, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to save club config: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"enrollments", "slots", "point_transactions", "ledger_entries", "accounts", "club_configs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// locationName keeps IANA zones by name and anonymous offsets as "offset:<seconds>".
func locationName(t time.Time) string {
	name := t.Location().String()
	if name != "" && name != "Local" {
		return name
	}
	_, offset := t.Zone()
	return "offset:" + strconv.Itoa(offset)
}

func loadLocation(name string) *time.Location {
	if seconds, ok := strings.CutPrefix(name, "offset:"); ok {
		offset, err := strconv.Atoi(seconds)
		if err != nil {
			return time.UTC
		}
		return time.FixedZone("", offset)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isActiveEnrollmentError matches idx_unique_active_enrollment, which SQLite
// reports by its columns.
func isActiveEnrollmentError(err error) bool {
	return isUniqueConstraintError(err) && strings.Contains(err.Error(), "enrollments.user_id")
}
