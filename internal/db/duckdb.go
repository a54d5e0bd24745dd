// Package db persists indexed assemblies, their members and the doc-ids that
// failed to resolve.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

type DB struct {
	conn *sql.DB
}

func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_assembly_id START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_member_id START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_unresolved_id START 1;`,

		`CREATE TABLE IF NOT EXISTS assemblies (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			member_count INTEGER NOT NULL DEFAULT 0,
			documented_count INTEGER NOT NULL DEFAULT 0,
			indexed_at TIMESTAMP,
			generation INTEGER NOT NULL DEFAULT 0,
			last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS members (
			id INTEGER PRIMARY KEY,
			assembly_id INTEGER NOT NULL,
			doc_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			declaring_type TEXT NOT NULL,
			name TEXT NOT NULL,
			content_hash TEXT,
			documented BOOLEAN NOT NULL DEFAULT false,
			generation INTEGER NOT NULL DEFAULT 0,
			UNIQUE(assembly_id, generation, doc_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_assembly ON members (assembly_id)`,
		`CREATE INDEX IF NOT EXISTS idx_members_type ON members (declaring_type)`,
		`CREATE INDEX IF NOT EXISTS idx_members_hash ON members (content_hash)`,

		`CREATE TABLE IF NOT EXISTS unresolved (
			id INTEGER PRIMARY KEY,
			assembly_id INTEGER NOT NULL,
			doc_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			candidates INTEGER NOT NULL DEFAULT 0,
			detail TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_unresolved_assembly ON unresolved (assembly_id)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// --- Assembly operations ---

type Assembly struct {
	ID              int
	Name            string
	MemberCount     int
	DocumentedCount int
	IndexedAt       *time.Time
	LastUsedAt      time.Time
}

const assemblyColumns = `id, name, member_count, documented_count, indexed_at, last_used_at`

func scanAssembly(row interface{ Scan(...any) error }) (*Assembly, error) {
	var a Assembly
	if err := row.Scan(&a.ID, &a.Name, &a.MemberCount, &a.DocumentedCount, &a.IndexedAt, &a.LastUsedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) UpsertAssembly(name string) (*Assembly, error) {
	a, err := db.GetAssembly(name)
	if err != nil {
		return nil, fmt.Errorf("checking assembly: %w", err)
	}
	if a != nil {
		return a, nil
	}

	_, err = db.conn.Exec(
		`INSERT INTO assemblies (id, name) VALUES (nextval('seq_assembly_id'), ?)`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting assembly: %w", err)
	}

	var id int
	if err := db.conn.QueryRow("SELECT currval('seq_assembly_id')").Scan(&id); err != nil {
		return nil, fmt.Errorf("getting assembly id: %w", err)
	}
	return &Assembly{ID: id, Name: name, LastUsedAt: time.Now()}, nil
}

func (db *DB) TouchAssembly(assemblyID int) error {
	_, err := db.conn.Exec(`UPDATE assemblies SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?`, assemblyID)
	return err
}

// GetAssembly returns the named assembly, or nil if it was never indexed.
func (db *DB) GetAssembly(name string) (*Assembly, error) {
	a, err := scanAssembly(db.conn.QueryRow(
		`SELECT `+assemblyColumns+` FROM assemblies WHERE name = ?`, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (db *DB) ListAssemblies() ([]Assembly, error) {
	rows, err := db.conn.Query(`SELECT ` + assemblyColumns + ` FROM assemblies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assemblies []Assembly
	for rows.Next() {
		a, err := scanAssembly(rows)
		if err != nil {
			return nil, err
		}
		assemblies = append(assemblies, *a)
	}
	return assemblies, rows.Err()
}

// DeleteAssembly removes an assembly together with its members and
// unresolved doc-ids.
func (db *DB) DeleteAssembly(assemblyID int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM members WHERE assembly_id = ?`,
		`DELETE FROM unresolved WHERE assembly_id = ?`,
		`DELETE FROM assemblies WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, assemblyID); err != nil {
			return fmt.Errorf("deleting assembly: %w", err)
		}
	}
	return tx.Commit()
}

// ReplaceAssembly swaps in the complete member and unresolved sets of an
// assembly and marks it indexed, in one transaction. Readers see either the
// previous sets or the new ones. AssemblyID fields of the rows are ignored.
func (db *DB) ReplaceAssembly(assemblyID int, ms []Member, unresolved []Unresolved) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var gen int
	err = tx.QueryRow(`SELECT generation FROM assemblies WHERE id = ?`, assemblyID).Scan(&gen)
	if err == sql.ErrNoRows {
		return fmt.Errorf("assembly %d does not exist", assemblyID)
	}
	if err != nil {
		return fmt.Errorf("reading assembly generation: %w", err)
	}
	// The new rows never share a unique key with the rows they replace.
	gen++

	documented, err := insertMembers(tx, assemblyID, gen, ms)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM members WHERE assembly_id = ? AND generation <> ?`, assemblyID, gen); err != nil {
		return fmt.Errorf("deleting previous members: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM unresolved WHERE assembly_id = ?`, assemblyID); err != nil {
		return fmt.Errorf("deleting previous unresolved: %w", err)
	}
	if err := insertUnresolved(tx, assemblyID, unresolved); err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE assemblies SET generation = ?, indexed_at = CURRENT_TIMESTAMP, member_count = ?, documented_count = ? WHERE id = ?`,
		gen, len(ms), documented, assemblyID,
	)
	if err != nil {
		return fmt.Errorf("marking assembly indexed: %w", err)
	}
	return tx.Commit()
}

// --- Member operations ---

type Member struct {
	ID            int
	AssemblyID    int
	DocID         string
	Kind          string
	DeclaringType string
	Name          string
	ContentHash   string
	Documented    bool
}

const memberColumns = `id, assembly_id, doc_id, kind, declaring_type, name, coalesce(content_hash, ''), documented`

func scanMember(row interface{ Scan(...any) error }) (*Member, error) {
	var m Member
	if err := row.Scan(&m.ID, &m.AssemblyID, &m.DocID, &m.Kind, &m.DeclaringType, &m.Name, &m.ContentHash, &m.Documented); err != nil {
		return nil, err
	}
	return &m, nil
}

// insertMembers adds one generation of members and returns how many are
// documented.
func insertMembers(tx *sql.Tx, assemblyID, gen int, ms []Member) (int, error) {
	stmt, err := tx.Prepare(`INSERT INTO members (id, assembly_id, generation, doc_id, kind, declaring_type, name, content_hash, documented)
		VALUES (nextval('seq_member_id'), ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing member insert: %w", err)
	}
	defer stmt.Close()

	documented := 0
	for _, m := range ms {
		if _, err := stmt.Exec(assemblyID, gen, m.DocID, m.Kind, m.DeclaringType, m.Name, nullable(m.ContentHash), m.Documented); err != nil {
			return 0, fmt.Errorf("inserting member %s: %w", m.DocID, err)
		}
		if m.Documented {
			documented++
		}
	}
	return documented, nil
}

// GetMember returns the member with the given doc-id, or nil if absent.
func (db *DB) GetMember(assemblyID int, docID string) (*Member, error) {
	m, err := scanMember(db.conn.QueryRow(
		`SELECT `+memberColumns+` FROM members WHERE assembly_id = ? AND doc_id = ?`,
		assemblyID, docID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMembersByType lists the members declared by a type key, in doc-id
// order. An empty key lists every member of the assembly.
func (db *DB) ListMembersByType(assemblyID int, declaringType string) ([]Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE assembly_id = ?`
	params := []any{assemblyID}
	if declaringType != "" {
		query += ` AND declaring_type = ?`
		params = append(params, declaringType)
	}
	rows, err := db.conn.Query(query+` ORDER BY doc_id`, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ms []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		ms = append(ms, *m)
	}
	return ms, rows.Err()
}

func (db *DB) CountMembers(assemblyID int) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM members WHERE assembly_id = ?`, assemblyID).Scan(&count)
	return count, err
}

// ContentHashes returns every page hash still referenced by a member.
func (db *DB) ContentHashes() (map[string]bool, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT content_hash FROM members WHERE content_hash IS NOT NULL AND content_hash != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[string]bool)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes[h] = true
	}
	return hashes, rows.Err()
}

// --- Unresolved operations ---

type Unresolved struct {
	AssemblyID int
	DocID      string
	Reason     string
	Candidates int
	Detail     string
}

func insertUnresolved(tx *sql.Tx, assemblyID int, u []Unresolved) error {
	if len(u) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO unresolved (id, assembly_id, doc_id, reason, candidates, detail)
		VALUES (nextval('seq_unresolved_id'), ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing unresolved insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range u {
		if _, err := stmt.Exec(assemblyID, r.DocID, r.Reason, r.Candidates, r.Detail); err != nil {
			return fmt.Errorf("inserting unresolved %s: %w", r.DocID, err)
		}
	}
	return nil
}

// ListUnresolved lists the doc-ids of an assembly that failed to resolve,
// optionally limited to one reason.
func (db *DB) ListUnresolved(assemblyID int, reason string) ([]Unresolved, error) {
	query := `SELECT assembly_id, doc_id, reason, candidates, coalesce(detail, '') FROM unresolved WHERE assembly_id = ?`
	params := []any{assemblyID}
	if reason != "" {
		query += ` AND reason = ?`
		params = append(params, reason)
	}
	rows, err := db.conn.Query(query+` ORDER BY id`, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Unresolved
	for rows.Next() {
		var u Unresolved
		if err := rows.Scan(&u.AssemblyID, &u.DocID, &u.Reason, &u.Candidates, &u.Detail); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
