// =============================================================================
// AXIS-Z Resolver - Project Store
// =============================================================================
//
// This module persists raw project tables in SQLite. Every (project, table)
// pair is one row of datos_proyecto holding the table as JSON:
//
//   proyecto_nombre | tabla_id     | datos            | updated_at
//   ----------------+--------------+------------------+-----------
//   Lomas           | ds_generales | {"PROMOCIÓN":..} | 1735689600
//   Lomas           | ts_general   | [{...}, {...}]   | 1735689600
//
// Saving a table replaces its previous JSON. Raw rows keep their key order
// through the ordered row codec, so a stored project resolves exactly like
// the export it came from.
//
// =============================================================================

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/axisz-resolver/internal/types"
)

// ErrProjectNotFound is returned when no table is stored for a project.
var ErrProjectNotFound = errors.New("project not found")

const ddl = `CREATE TABLE IF NOT EXISTS datos_proyecto (
	proyecto_nombre TEXT    NOT NULL,
	tabla_id        TEXT    NOT NULL,
	datos           TEXT    NOT NULL,
	updated_at      INTEGER NOT NULL,
	PRIMARY KEY (proyecto_nombre, tabla_id)
)`

// Store manages the datos_proyecto SQLite table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// ProjectInfo describes one stored project.
type ProjectInfo struct {
	Name      string          `json:"name"`
	Tables    []types.TableID `json:"tables"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Open opens (or creates) the SQLite database at path and ensures the
// datos_proyecto table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create datos_proyecto table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// WRITES
// =============================================================================

// SaveTable stores data as the JSON of one table of a project, replacing
// what was there.
func (s *Store) SaveTable(ctx context.Context, project string, table types.TableID, data any) error {
	if strings.TrimSpace(project) == "" {
		return fmt.Errorf("failed to save %s: empty project name", table)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s of %s: %w", table, project, err)
	}

	const q = `INSERT INTO datos_proyecto (proyecto_nombre, tabla_id, datos, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (proyecto_nombre, tabla_id)
		DO UPDATE SET datos = excluded.datos, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, project, string(table), string(payload), s.now().Unix()); err != nil {
		return fmt.Errorf("failed to save %s of %s: %w", table, project, err)
	}
	return nil
}

// SaveProject stores every table of raw in one transaction. Tables without
// rows are stored too, so a save always replaces the whole project.
func (s *Store) SaveProject(ctx context.Context, raw types.ProjectDataRaw) error {
	if strings.TrimSpace(raw.Name) == "" {
		return errors.New("failed to save project: empty project name")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	tables := []struct {
		id   types.TableID
		data any
	}{
		{types.TableGeneral, raw.General},
		{types.TableUnits, nonNil(raw.Units)},
		{types.TableGarages, nonNil(raw.Garages)},
		{types.TableStorages, nonNil(raw.Storages)},
	}
	for _, t := range tables {
		payload, err := json.Marshal(t.data)
		if err != nil {
			return fmt.Errorf("failed to encode %s of %s: %w", t.id, raw.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO datos_proyecto (proyecto_nombre, tabla_id, datos, updated_at) VALUES (?, ?, ?, ?)`,
			raw.Name, string(t.id), string(payload), now,
		); err != nil {
			return fmt.Errorf("failed to save %s of %s: %w", t.id, raw.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project %s: %w", raw.Name, err)
	}
	return nil
}

func nonNil(rows []types.Row) []types.Row {
	if rows == nil {
		return []types.Row{}
	}
	return rows
}

// DeleteProject removes every table of a project.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datos_proyecto WHERE proyecto_nombre = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to delete project %s: %w", name, ErrProjectNotFound)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// LoadProject reads every stored table of a project. Tables that were never
// stored stay empty. Unknown table IDs are ignored.
func (s *Store) LoadProject(ctx context.Context, name string) (types.ProjectDataRaw, error) {
	raw := types.ProjectDataRaw{Name: name}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tabla_id, datos FROM datos_proyecto WHERE proyecto_nombre = ?`, name)
	if err != nil {
		return raw, fmt.Errorf("failed to load project %s: %w", name, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var tableID, data string
		if err := rows.Scan(&tableID, &data); err != nil {
			return raw, fmt.Errorf("failed to scan table of %s: %w", name, err)
		}
		found = true

		table, ok := types.ParseTableID(tableID)
		if !ok {
			continue
		}
		if err := raw.DecodeTable(table, []byte(data)); err != nil {
			return raw, fmt.Errorf("failed to decode %s of %s: %w", table, name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return raw, fmt.Errorf("failed to load project %s: %w", name, err)
	}
	if !found {
		return raw, fmt.Errorf("%s: %w", name, ErrProjectNotFound)
	}
	return raw, nil
}

// ListProjects returns every stored project, ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT proyecto_nombre, tabla_id, updated_at FROM datos_proyecto ORDER BY proyecto_nombre, tabla_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []ProjectInfo
	for rows.Next() {
		var (
			name, table string
			updated     int64
		)
		if err := rows.Scan(&name, &table, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		if len(projects) == 0 || projects[len(projects)-1].Name != name {
			projects = append(projects, ProjectInfo{Name: name})
		}
		p := &projects[len(projects)-1]
		p.Tables = append(p.Tables, types.TableID(table))
		if t := time.Unix(updated, 0); t.After(p.UpdatedAt) {
			p.UpdatedAt = t
		}
	}
	return projects, rows.Err()
}
