/*
Package sqlite provides the SQLite-backed implementation of leave.Store.

PURPOSE:
  Realizes the document-store collaborator: profiles and requests keyed by
  id, point lookups, a filtered pending scan, and per-document conditional
  updates. The same patterns apply to a server database; only the SQL
  dialect differs.

KEY TABLES:
  profiles: one document per employee (allowance, start date, role)
  requests: one document per leave request, never deleted

CONDITIONAL UPDATES:
  Both mutating statements carry their guard in the WHERE clause:
  - status transition:  ... WHERE id = ? AND status = 'pending'
  - allowance CAS:      ... WHERE id = ? AND remaining_allowance = ?
  A zero rows-affected result is disambiguated with a follow-up point
  lookup: unknown id vs guard failure.

DATE/TIME STORAGE:
  Calendar dates (ranges, start date) are stored as YYYY-MM-DD text;
  instants (created/decided) as RFC3339 text. Allowances are stored as
  canonical decimal strings written by Days.String, so the CAS's string
  equality matches decimal equality.

ERROR MAPPING:
  Missing rows map to leave.ErrNotFound, guard failures to
  leave.ErrConcurrentModification or leave.InvalidTransitionError, and
  any database-level failure is wrapped in leave.ErrStoreUnavailable.

CONCURRENCY:
  sync.RWMutex around the connection, and WAL mode for multiple readers
  alongside the single writer.

USAGE:
  st, err := sqlite.New("./data/leavedesk.db")  // or ":memory:"
  svc := leave.NewService(st, nil, log)

SEE ALSO:
  - leave/store.go: the contracts implemented here
  - leave/store/memory.go: in-memory equivalent for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crewdesk/leavedesk/datemath"
	"github.com/crewdesk/leavedesk/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'standard',
		about TEXT NOT NULL DEFAULT '',
		languages TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		employment_start_date TEXT,
		remaining_allowance TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		range_start TEXT NOT NULL,
		range_end TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		decided_by TEXT,
		decided_at TEXT,
		created_at TEXT NOT NULL
	);

	-- Pending scan is the hot admin path.
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_owner
		ON requests(owner_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// unavailable wraps a database-level failure so callers can distinguish
// "try again" from domain errors via errors.Is.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, leave.ErrStoreUnavailable)
}

// =============================================================================
// PROFILE STORE (leave.ProfileStore interface)
// =============================================================================

const profileColumns = `id, name, email, role, about, languages, image_url,
	employment_start_date, remaining_allowance, created_at, updated_at`

// GetProfile returns a profile by id.
func (s *Store) GetProfile(ctx context.Context, id leave.ProfileID) (*leave.ProfileAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get profile", err)
	}
	return p, nil
}

// SaveProfile upserts the full profile document.
func (s *Store) SaveProfile(ctx context.Context, p *leave.ProfileAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			about = excluded.about,
			languages = excluded.languages,
			image_url = excluded.image_url,
			employment_start_date = excluded.employment_start_date,
			remaining_allowance = excluded.remaining_allowance,
			updated_at = excluded.updated_at
	`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Email, p.Role, p.About, p.Languages, p.ImageURL,
		nullDate(p.EmploymentStartDate),
		p.RemainingAllowance.String(),
		createdAt.Format(time.RFC3339),
		updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return unavailable("save profile", err)
	}
	return nil
}

// UpdateAllowance performs the compare-and-swap debit. The guard compares
// the stored canonical decimal string against expect.
func (s *Store) UpdateAllowance(ctx context.Context, id leave.ProfileID, expect, next leave.Days) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET remaining_allowance = ?, updated_at = ?
		WHERE id = ? AND remaining_allowance = ?`,
		next.String(), time.Now().UTC().Format(time.RFC3339), id, expect.String(),
	)
	if err != nil {
		return unavailable("update allowance", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return unavailable("update allowance", err)
	}
	if affected > 0 {
		return nil
	}

	// Guard failed: unknown id or stale expectation.
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM profiles WHERE id = ?", id).Scan(&count); err != nil {
		return unavailable("update allowance", err)
	}
	if count == 0 {
		return leave.ErrNotFound
	}
	return leave.ErrConcurrentModification
}

func scanProfile(row *sql.Row) (*leave.ProfileAccount, error) {
	var (
		p         leave.ProfileAccount
		startDate sql.NullString
		allowance string
		createdAt string
		updatedAt string
	)

	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.About, &p.Languages,
		&p.ImageURL, &startDate, &allowance, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if startDate.Valid && startDate.String != "" {
		d, err := datemath.ParseDate(startDate.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt start date for %s: %w", p.ID, err)
		}
		p.EmploymentStartDate = d
	}

	p.RemainingAllowance, err = leave.ParseDays(allowance)
	if err != nil {
		return nil, fmt.Errorf("corrupt allowance for %s: %w", p.ID, err)
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// =============================================================================
// REQUEST STORE (leave.RequestStore interface)
// =============================================================================

// CreateRequest inserts a new request row. Ids collide only on a bug, so
// the unique constraint is left to fail loudly.
func (s *Store) CreateRequest(ctx context.Context, r *leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, owner_id, range_start, range_end, message, status,
			decided_by, decided_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID,
		r.RangeStart.String(), r.RangeEnd.String(),
		r.Message, r.Status,
		nullString(string(r.DecidedBy)), nullTime(r.DecidedAt),
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return unavailable("create request", err)
	}
	return nil
}

// GetRequest returns a request by id.
func (s *Store) GetRequest(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getRequestLocked(ctx, id)
}

func (s *Store) getRequestLocked(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, range_start, range_end, message, status,
			decided_by, decided_at, created_at
		FROM requests WHERE id = ?`, id)

	r, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, leave.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get request", err)
	}
	return r, nil
}

// TransitionRequest moves a pending request to a terminal status. The
// WHERE status = 'pending' guard makes the transition exactly-once even
// when two admins decide concurrently.
func (s *Store) TransitionRequest(ctx context.Context, id leave.RequestID, to leave.RequestStatus, decidedBy leave.ProfileID, at time.Time) (*leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE requests
		SET status = ?, decided_by = ?, decided_at = ?
		WHERE id = ? AND status = ?`,
		to, string(decidedBy), at.UTC().Format(time.RFC3339), id, leave.StatusPending,
	)
	if err != nil {
		return nil, unavailable("transition request", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, unavailable("transition request", err)
	}

	if affected == 0 {
		existing, err := s.getRequestLocked(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &leave.InvalidTransitionError{RequestID: id, Status: existing.Status}
	}

	return s.getRequestLocked(ctx, id)
}

// ListPending returns pending requests in submission order joined with
// the requester's name. rowid breaks created_at ties, so simultaneous
// submissions still list in insertion order.
func (s *Store) ListPending(ctx context.Context) ([]leave.PendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.owner_id, r.range_start, r.range_end, r.message, r.status,
			r.decided_by, r.decided_at, r.created_at,
			COALESCE(p.name, '')
		FROM requests r
		LEFT JOIN profiles p ON p.id = r.owner_id
		WHERE r.status = ?
		ORDER BY r.created_at ASC, r.rowid ASC`,
		leave.StatusPending,
	)
	if err != nil {
		return nil, unavailable("list pending", err)
	}
	defer rows.Close()

	var out []leave.PendingRequest
	for rows.Next() {
		var ownerName string
		r, err := scanRequest(func(dest ...any) error {
			return rows.Scan(append(dest, &ownerName)...)
		})
		if err != nil {
			return nil, unavailable("list pending", err)
		}
		out = append(out, leave.PendingRequest{LeaveRequest: *r, OwnerName: ownerName})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list pending", err)
	}
	return out, nil
}

// ListByOwner returns one employee's requests, newest first.
func (s *Store) ListByOwner(ctx context.Context, owner leave.ProfileID) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, range_start, range_end, message, status,
			decided_by, decided_at, created_at
		FROM requests
		WHERE owner_id = ?
		ORDER BY created_at DESC, rowid DESC`, owner)
	if err != nil {
		return nil, unavailable("list by owner", err)
	}
	defer rows.Close()

	var out []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, unavailable("list by owner", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list by owner", err)
	}
	return out, nil
}

// scanRequest scans the nine request columns through any row scanner.
func scanRequest(scan func(dest ...any) error) (*leave.LeaveRequest, error) {
	var (
		r          leave.LeaveRequest
		rangeStart string
		rangeEnd   string
		decidedBy  sql.NullString
		decidedAt  sql.NullString
		createdAt  string
	)

	err := scan(&r.ID, &r.OwnerID, &rangeStart, &rangeEnd, &r.Message, &r.Status,
		&decidedBy, &decidedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	if r.RangeStart, err = datemath.ParseDate(rangeStart); err != nil {
		return nil, fmt.Errorf("corrupt range start for %s: %w", r.ID, err)
	}
	if r.RangeEnd, err = datemath.ParseDate(rangeEnd); err != nil {
		return nil, fmt.Errorf("corrupt range end for %s: %w", r.ID, err)
	}

	r.DecidedBy = leave.ProfileID(decidedBy.String)
	if decidedAt.Valid {
		t, err := time.Parse(time.RFC3339, decidedAt.String)
		if err == nil {
			r.DecidedAt = &t
		}
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d datemath.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
