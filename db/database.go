package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"periodical_index/models"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Metadata keys stored in index_metadata
const (
	MetaRootPath = "root_path"
	MetaIndexed  = "indexed"
	MetaRunID    = "run_id"
)

// Database is the DuckDB catalog of an indexed archive
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database instance
func NewDatabase() *Database {
	return &Database{}
}

// Init opens the DuckDB database at dbPath and creates the tables
func (d *Database) Init(dbPath string) error {
	var err error
	d.db, err = sql.Open("duckdb", dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS files (
		period VARCHAR NOT NULL,
		year VARCHAR NOT NULL,
		issue VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		rel_path VARCHAR PRIMARY KEY,
		abs_path VARCHAR NOT NULL,
		size_kb DOUBLE NOT NULL,
		modified TIMESTAMP NOT NULL,
		extension VARCHAR,
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS index_metadata (
		key VARCHAR PRIMARY KEY,
		value VARCHAR
	);

	CREATE INDEX IF NOT EXISTS idx_files_name ON files(name);
	CREATE INDEX IF NOT EXISTS idx_files_extension ON files(extension);
	`

	if _, err = d.db.Exec(createTablesSQL); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("error creating tables: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// ClearData clears all existing data from the database
func (d *Database) ClearData() error {
	if _, err := d.db.Exec("DELETE FROM files"); err != nil {
		return fmt.Errorf("error clearing existing data: %w", err)
	}
	if _, err := d.db.Exec("DELETE FROM index_metadata"); err != nil {
		return fmt.Errorf("error clearing metadata: %w", err)
	}
	return nil
}

// SetMetadata sets a metadata key-value pair
func (d *Database) SetMetadata(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO index_metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("error setting %s: %w", key, err)
	}
	return nil
}

// Metadata returns the value stored under key, or "" when absent.
func (d *Database) Metadata(key string) (string, error) {
	var value sql.NullString
	err := d.db.QueryRow("SELECT value FROM index_metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", key, err)
	}
	return value.String, nil
}

// InsertHierarchy stores every record of h in one transaction.
func (d *Database) InsertHierarchy(h *models.Hierarchy) (err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO files (period, year, issue, name, rel_path, abs_path, size_kb, modified, extension, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	err = h.Walk(func(key models.SectionKey, files []models.FileRecord) error {
		for _, f := range files {
			_, err := stmt.Exec(key.Period, key.Year, key.Issue, f.Name, f.RelPath, f.AbsPath,
				float64(f.SizeKiB), f.Modified.Time, f.Extension, now)
			if err != nil {
				return fmt.Errorf("error inserting file %s: %w", f.RelPath, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing files: %w", err)
	}
	return nil
}

// CatalogFile is a catalog row: a record with its section key
type CatalogFile struct {
	Key    models.SectionKey
	Record models.FileRecord
}

const selectFiles = `
	SELECT period, year, issue, name, rel_path, abs_path, size_kb, modified, extension
	FROM files
`

// SearchFiles returns files whose name or relative path contains query, case-insensitively
func (d *Database) SearchFiles(query string) ([]CatalogFile, error) {
	rows, err := d.db.Query(selectFiles+`
		WHERE name ILIKE ? OR rel_path ILIKE ?
		ORDER BY period, year, issue, name
	`, "%"+query+"%", "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("error searching files: %w", err)
	}
	return scanFiles(rows)
}

// ListFiles retrieves all files in section order
func (d *Database) ListFiles() ([]CatalogFile, error) {
	rows, err := d.db.Query(selectFiles + `
		ORDER BY period, year, issue, name
	`)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	return scanFiles(rows)
}

func scanFiles(rows *sql.Rows) ([]CatalogFile, error) {
	defer rows.Close()

	var files []CatalogFile
	for rows.Next() {
		var (
			f         CatalogFile
			size      float64
			modified  time.Time
			extension sql.NullString
		)
		err := rows.Scan(&f.Key.Period, &f.Key.Year, &f.Key.Issue, &f.Record.Name, &f.Record.RelPath,
			&f.Record.AbsPath, &size, &modified, &extension)
		if err != nil {
			return nil, fmt.Errorf("error scanning file row: %w", err)
		}
		f.Record.SizeKiB = models.KiB(size)
		f.Record.Modified = models.Timestamp{Time: modified}
		f.Record.Extension = extension.String
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading file rows: %w", err)
	}
	return files, nil
}

// Count is a labelled row count
type Count struct {
	Label string
	Count int
}

// Stats summarizes the catalog
type Stats struct {
	TotalFiles   int
	TotalSizeKiB models.KiB
	Sections     int
	RootPath     string
	IndexedTime  string
	RunID        string
	Extensions   []Count
	Periods      []Count
}

// GetStats retrieves statistics from the database
func (d *Database) GetStats() (*Stats, error) {
	var (
		stats     Stats
		totalSize float64
	)
	err := d.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(size_kb), 0), COUNT(DISTINCT period || '/' || year || '/' || issue)
		FROM files
	`).Scan(&stats.TotalFiles, &totalSize, &stats.Sections)
	if err != nil {
		return nil, fmt.Errorf("error getting file count: %w", err)
	}
	stats.TotalSizeKiB = models.KiB(totalSize)

	if stats.Extensions, err = d.counts(`
		SELECT CASE WHEN extension = '' THEN 'no_extension' ELSE extension END AS label, COUNT(*) AS n
		FROM files GROUP BY label ORDER BY n DESC, label
	`); err != nil {
		return nil, fmt.Errorf("error getting file types: %w", err)
	}
	if stats.Periods, err = d.counts(`
		SELECT period, COUNT(*) FROM files GROUP BY period ORDER BY period
	`); err != nil {
		return nil, fmt.Errorf("error getting periods: %w", err)
	}

	for key, dst := range map[string]*string{
		MetaRootPath: &stats.RootPath,
		MetaIndexed:  &stats.IndexedTime,
		MetaRunID:    &stats.RunID,
	} {
		if *dst, err = d.Metadata(key); err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

func (d *Database) counts(query string) ([]Count, error) {
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// QueryResult is the text form of an arbitrary query result
type QueryResult struct {
	Columns []string
	Rows    [][]string
}

// ExecuteSQL executes a custom SQL query and returns its rows as text
func (d *Database) ExecuteSQL(sqlQuery string) (*QueryResult, error) {
	rows, err := d.db.Query(sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error getting columns: %w", err)
	}

	result := &QueryResult{Columns: columns}
	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}

		row := make([]string, len(columns))
		for i, val := range values {
			if val == nil {
				row[i] = "NULL"
			} else {
				row[i] = fmt.Sprintf("%v", val)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return result, nil
}
