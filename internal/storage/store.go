package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Driver names accepted by OpenDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the persistent document store shared by the chat and intake
// endpoints. Every write is a single-row insert; there are no multi-record
// transactions outside of migrations.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "ltgate.db")
	}
	return open(DriverSQLite, dsn)
}

// OpenPostgres connects to the database at databaseURL and runs pending migrations.
func OpenPostgres(databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres storage requires a database URL")
	}
	return open(DriverPostgres, databaseURL)
}

// OpenDriver opens the store selected by driver. dataDir is used by SQLite,
// databaseURL by Postgres.
func OpenDriver(driver, dataDir, databaseURL string) (*Store, error) {
	switch driver {
	case "", DriverSQLite:
		return Open(dataDir)
	case DriverPostgres:
		return OpenPostgres(databaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if driver == DriverSQLite {
		// Limit to single connection to avoid "database is locked" errors.
		db.SetMaxOpenConns(1)

		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting journal mode: %w", err)
		}
	}

	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM schema_version WHERE version = ?"), version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec(s.rebind("INSERT INTO schema_version (version) VALUES (?)"), version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// NewID returns a fresh record key. Keys are UUIDv7, so they sort in
// creation order like push-generated keys.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// --- Chat logs ---

// AppendChatLog stores a chat log entry and returns its ID. ID and Timestamp
// are assigned when empty.
func (s *Store) AppendChatLog(ctx context.Context, e ChatLogEntry) (string, error) {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = s.nowMillis()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO chat_logs (id, sender, message, created_ms, source_ip)
		VALUES (?, ?, ?, ?, ?)`),
		e.ID, string(e.Sender), e.Message, e.Timestamp, nullString(e.SourceIP),
	)
	if err != nil {
		return "", fmt.Errorf("inserting chat log: %w", err)
	}
	return e.ID, nil
}

// RecentChatLogs returns up to limit entries, newest first.
func (s *Store) RecentChatLogs(ctx context.Context, limit int) ([]ChatLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, sender, message, created_ms, source_ip
		FROM chat_logs ORDER BY created_ms DESC, id DESC LIMIT ?`), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ChatLogEntry
	for rows.Next() {
		var e ChatLogEntry
		var sender string
		var ip sql.NullString
		if err := rows.Scan(&e.ID, &sender, &e.Message, &e.Timestamp, &ip); err != nil {
			return nil, err
		}
		e.Sender = Sender(sender)
		e.SourceIP = stringPtr(ip)
		results = append(results, e)
	}
	return results, rows.Err()
}

// --- Reviews ---

// CreateReview stores r and returns its generated ID.
func (s *Store) CreateReview(ctx context.Context, r Review) (string, error) {
	if r.ID == "" {
		r.ID = NewID()
	}
	if r.Timestamp == 0 {
		r.Timestamp = s.nowMillis()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO reviews (id, name, email, rating, text, created_ms, approved, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Name, nullString(r.Email), r.Rating, r.Text, r.Timestamp, r.Approved, r.Pending,
	)
	if err != nil {
		return "", fmt.Errorf("inserting review: %w", err)
	}
	return r.ID, nil
}

// GetReview returns the review with the given ID or ErrNotFound.
func (s *Store) GetReview(ctx context.Context, id string) (Review, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, email, rating, text, created_ms, approved, pending
		FROM reviews WHERE id = ?`), id,
	)
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return Review{}, ErrNotFound
	}
	if err != nil {
		return Review{}, err
	}
	return r, nil
}

// ListReviews returns every review ordered by timestamp ascending, ties
// broken by ID. An empty collection yields a nil slice and no error.
func (s *Store) ListReviews(ctx context.Context) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, rating, text, created_ms, approved, pending
		FROM reviews ORDER BY created_ms ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (Review, error) {
	var r Review
	var email sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &email, &r.Rating, &r.Text, &r.Timestamp, &r.Approved, &r.Pending); err != nil {
		return Review{}, err
	}
	r.Email = stringPtr(email)
	return r, nil
}

// --- Intake records ---

// CreateIntakeRecord stores rec and returns its generated ID. Status
// defaults to "new".
func (s *Store) CreateIntakeRecord(ctx context.Context, rec IntakeRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = s.nowMillis()
	}
	if rec.Status == "" {
		rec.Status = "new"
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO intake_records (id, kind, name, email, phone, city, birthdate, message, created_ms, display_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, string(rec.Kind), rec.Name, rec.Email, rec.Phone, rec.City, rec.Birthdate,
		rec.Message, rec.Timestamp, rec.Date, rec.Status,
	)
	if err != nil {
		return "", fmt.Errorf("inserting %s record: %w", rec.Kind, err)
	}
	return rec.ID, nil
}

// GetIntakeRecord returns the record with the given ID or ErrNotFound.
func (s *Store) GetIntakeRecord(ctx context.Context, id string) (IntakeRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, kind, name, email, phone, city, birthdate, message, created_ms, display_date, status
		FROM intake_records WHERE id = ?`), id,
	)
	rec, err := scanIntakeRecord(row)
	if err == sql.ErrNoRows {
		return IntakeRecord{}, ErrNotFound
	}
	if err != nil {
		return IntakeRecord{}, err
	}
	return rec, nil
}

// ListIntakeRecords returns up to limit records of the given kind, newest first.
func (s *Store) ListIntakeRecords(ctx context.Context, kind IntakeKind, limit int) ([]IntakeRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, kind, name, email, phone, city, birthdate, message, created_ms, display_date, status
		FROM intake_records WHERE kind = ?
		ORDER BY created_ms DESC, id DESC LIMIT ?`), string(kind), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IntakeRecord
	for rows.Next() {
		rec, err := scanIntakeRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func scanIntakeRecord(row rowScanner) (IntakeRecord, error) {
	var rec IntakeRecord
	var kind string
	if err := row.Scan(&rec.ID, &kind, &rec.Name, &rec.Email, &rec.Phone, &rec.City,
		&rec.Birthdate, &rec.Message, &rec.Timestamp, &rec.Date, &rec.Status); err != nil {
		return IntakeRecord{}, err
	}
	rec.Kind = IntakeKind(kind)
	return rec, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
