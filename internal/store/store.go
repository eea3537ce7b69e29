package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SnapshotRecord represents a stored settings snapshot.
type SnapshotRecord struct {
	ID              int64
	Hostname        string
	BIOSVendor      string
	BIOSVersion     string
	BIOSReleaseDate string
	BoardProduct    string
	SystemUUID      string
	SettingCount    int
	TakenAt         time.Time
	StoredAt        time.Time
	SettingsJSON    string
}

// ChangeRecord is one attempted setting update.
type ChangeRecord struct {
	ID          string
	Setting     string
	OldRaw      string
	NewRaw      string
	RequestedAt time.Time
	Success     bool
	Error       string
}

// SnapshotFilter holds optional query parameters for listing snapshots.
type SnapshotFilter struct {
	Hostname    string
	BIOSVersion string
	TakenAfter  *time.Time
	TakenBefore *time.Time
	PageSize    int
	Page        int
}

// ChangeFilter holds optional query parameters for listing changes.
type ChangeFilter struct {
	Setting       string
	FailedOnly    bool
	RequestedFrom *time.Time
	PageSize      int
	Page          int
}

// Store persists snapshots and the change log.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSnapshot stores a snapshot and returns the new ID and stored_at time.
func (s *Store) InsertSnapshot(ctx context.Context, rec *SnapshotRecord) (int64, time.Time, error) {
	storedAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (hostname, bios_vendor, bios_version, bios_release_date, board_product,
		                        system_uuid, setting_count, taken_at, stored_at, settings_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Hostname,
		rec.BIOSVendor,
		rec.BIOSVersion,
		rec.BIOSReleaseDate,
		rec.BoardProduct,
		rec.SystemUUID,
		rec.SettingCount,
		rec.TakenAt.UTC().Format(time.RFC3339),
		storedAt.Format(time.RFC3339),
		rec.SettingsJSON,
	)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("get last insert id: %w", err)
	}

	return id, storedAt, nil
}

const snapshotColumns = `id, hostname, bios_vendor, bios_version, bios_release_date, board_product,
	system_uuid, setting_count, taken_at, stored_at`

// GetSnapshot retrieves a snapshot, settings included, by ID.
func (s *Store) GetSnapshot(ctx context.Context, id int64) (*SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+`, settings_json FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// GetLatestSnapshot retrieves the most recent snapshot, settings included.
func (s *Store) GetLatestSnapshot(ctx context.Context) (*SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+`, settings_json FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT 1`)
	return scanSnapshot(row)
}

// DeleteSnapshot removes a snapshot by ID.
func (s *Store) DeleteSnapshot(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ListSnapshots returns snapshot summaries (without settings) matching the
// filter, newest first, and the total match count.
func (s *Store) ListSnapshots(ctx context.Context, f SnapshotFilter) ([]SnapshotRecord, int, error) {
	var w where
	if f.Hostname != "" {
		w.add("hostname = ?", f.Hostname)
	}
	if f.BIOSVersion != "" {
		w.add("bios_version = ?", f.BIOSVersion)
	}
	if f.TakenAfter != nil {
		w.add("taken_at >= ?", f.TakenAfter.UTC().Format(time.RFC3339))
	}
	if f.TakenBefore != nil {
		w.add("taken_at <= ?", f.TakenBefore.UTC().Format(time.RFC3339))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count snapshots: %w", err)
	}

	limit, offset := paginate(f.PageSize, f.Page)
	query := `SELECT ` + snapshotColumns + `, '' FROM snapshots` + w.String() + ` ORDER BY taken_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}

	return records, total, rows.Err()
}

// InsertChange appends one entry to the change log.
func (s *Store) InsertChange(ctx context.Context, c *ChangeRecord) error {
	success := 0
	if c.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO changes (id, setting, old_raw, new_raw, requested_at, success, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Setting,
		c.OldRaw,
		c.NewRaw,
		c.RequestedAt.UTC().Format(changeTimeLayout),
		success,
		c.Error,
	)
	if err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// ListChanges returns change log entries matching the filter, newest first,
// and the total match count.
func (s *Store) ListChanges(ctx context.Context, f ChangeFilter) ([]ChangeRecord, int, error) {
	var w where
	if f.Setting != "" {
		w.add("setting = ?", f.Setting)
	}
	if f.FailedOnly {
		w.add("success = 0")
	}
	if f.RequestedFrom != nil {
		w.add("requested_at >= ?", f.RequestedFrom.UTC().Format(changeTimeLayout))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM changes"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count changes: %w", err)
	}

	limit, offset := paginate(f.PageSize, f.Page)
	query := `SELECT id, setting, old_raw, new_raw, requested_at, success, error FROM changes` +
		w.String() + ` ORDER BY requested_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(w.args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var records []ChangeRecord
	for rows.Next() {
		var c ChangeRecord
		var requestedAt string
		var success int
		if err := rows.Scan(&c.ID, &c.Setting, &c.OldRaw, &c.NewRaw, &requestedAt, &success, &c.Error); err != nil {
			return nil, 0, err
		}
		c.RequestedAt, _ = time.Parse(changeTimeLayout, requestedAt)
		c.Success = success != 0
		records = append(records, c)
	}

	return records, total, rows.Err()
}

// Purge deletes snapshots and change log entries older than the given
// duration and returns the number of rows removed.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE taken_at < ?`, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("purge snapshots: %w", err)
	}
	snapshots, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	result, err = s.db.ExecContext(ctx, `DELETE FROM changes WHERE requested_at < ?`, cutoff.Format(changeTimeLayout))
	if err != nil {
		return snapshots, fmt.Errorf("purge changes: %w", err)
	}
	changes, err := result.RowsAffected()
	if err != nil {
		return snapshots, fmt.Errorf("rows affected: %w", err)
	}

	return snapshots + changes, nil
}

// changeTimeLayout is fixed-width so stored timestamps sort as text.
const changeTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type where struct {
	conditions []string
	args       []any
}

func (w *where) add(cond string, args ...any) {
	w.conditions = append(w.conditions, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func paginate(pageSize, page int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = 50
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*SnapshotRecord, error) {
	var rec SnapshotRecord
	var takenAt, storedAt string
	err := row.Scan(&rec.ID, &rec.Hostname, &rec.BIOSVendor, &rec.BIOSVersion, &rec.BIOSReleaseDate,
		&rec.BoardProduct, &rec.SystemUUID, &rec.SettingCount, &takenAt, &storedAt, &rec.SettingsJSON)
	if err != nil {
		return nil, err
	}

	rec.TakenAt, _ = time.Parse(time.RFC3339, takenAt)
	rec.StoredAt, _ = time.Parse(time.RFC3339, storedAt)

	return &rec, nil
}
