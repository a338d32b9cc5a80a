package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database is a SQLite mirror of the catalog. The flat files stay the source
// of truth; the mirror is refreshed after every change and answers queries
// the files cannot, such as checkout statistics. It also stores patron PIN
// hashes, which have no place in the patrons file.
type Database struct {
	db *sql.DB

	setPINStmt *sql.Stmt
}

// BookRow is a catalog entry as stored in the mirror.
type BookRow struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Genre    string `json:"genre"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	PatronID int64  `json:"patron_id,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
}

// TitleCount is the number of checkouts recorded for one title.
type TitleCount struct {
	Title     string `json:"title"`
	Checkouts int    `json:"checkouts"`
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.setPINStmt != nil {
		d.setPINStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patrons (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            position INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            genre TEXT NOT NULL,
            kind TEXT NOT NULL,
            status TEXT NOT NULL,
            patron_id INTEGER,
            checkout_date TEXT,
            due_date TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            position INTEGER PRIMARY KEY,
            patron_id INTEGER NOT NULL,
            book_title TEXT NOT NULL,
            type TEXT NOT NULL,
            date TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_title ON transactions(book_title);`,
		`CREATE TABLE IF NOT EXISTS credentials (
            patron_id INTEGER PRIMARY KEY,
            pin_hash TEXT NOT NULL,
            updated_at DATETIME NOT NULL
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	d.setPINStmt, err = d.db.Prepare(`INSERT INTO credentials(patron_id,pin_hash,updated_at) VALUES(?,?,?)
        ON CONFLICT(patron_id) DO UPDATE SET pin_hash=excluded.pin_hash, updated_at=excluded.updated_at`)
	return err
}

// ---------------------------------------------------------------------------
// Mirror
// ---------------------------------------------------------------------------

// SyncCatalog replaces the mirrored books, patrons and transactions in one
// transaction.
func (d *Database) SyncCatalog(books []*Book, patrons []*Patron, txs []Transaction) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"books", "patrons", "transactions"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, p := range patrons {
		if _, err := tx.Exec(`INSERT INTO patrons(id,name) VALUES(?,?)`, p.ID(), p.Name()); err != nil {
			return fmt.Errorf("mirror patron %d: %w", p.ID(), err)
		}
	}

	for i, b := range books {
		var patronID sql.NullInt64
		if id, ok := b.CurrentPatronID(); ok {
			patronID = sql.NullInt64{Int64: int64(id), Valid: true}
		}
		if _, err := tx.Exec(`INSERT INTO books(position,title,author,genre,kind,status,patron_id,checkout_date,due_date)
            VALUES(?,?,?,?,?,?,?,?,?)`,
			i, b.Title(), b.Author(), b.Genre().String(), b.Kind().Tag(), b.Status().String(),
			patronID, isoDate(b.CheckoutDate()), isoDate(b.DueDate())); err != nil {
			return fmt.Errorf("mirror book %q: %w", b.Title(), err)
		}
	}

	for i, t := range txs {
		if _, err := tx.Exec(`INSERT INTO transactions(position,patron_id,book_title,type,date) VALUES(?,?,?,?,?)`,
			i, t.PatronID(), t.BookTitle(), t.Type().String(), isoDate(t.Date(), true)); err != nil {
			return fmt.Errorf("mirror transaction %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// SearchBooks matches q against title and author, ignoring ASCII case.
func (d *Database) SearchBooks(q string) ([]*BookRow, error) {
	if strings.TrimSpace(q) == "" {
		return []*BookRow{}, nil
	}
	pattern := "%" + strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(q) + "%"
	rows, err := d.db.Query(`
        SELECT title, author, genre, kind, status, COALESCE(patron_id,0), COALESCE(due_date,'')
        FROM books
        WHERE title LIKE ? ESCAPE '\' OR author LIKE ? ESCAPE '\'
        ORDER BY position;`, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*BookRow
	for rows.Next() {
		var b BookRow
		if err := rows.Scan(&b.Title, &b.Author, &b.Genre, &b.Kind, &b.Status, &b.PatronID, &b.DueDate); err != nil {
			return nil, err
		}
		results = append(results, &b)
	}
	return results, rows.Err()
}

// CheckoutCounts returns the most borrowed titles, busiest first.
func (d *Database) CheckoutCounts(limit int) ([]TitleCount, error) {
	rows, err := d.db.Query(`
        SELECT book_title, COUNT(*) AS n
        FROM transactions
        WHERE type = ?
        GROUP BY book_title
        ORDER BY n DESC, book_title ASC
        LIMIT ?;`, Checkout.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []TitleCount
	for rows.Next() {
		var c TitleCount
		if err := rows.Scan(&c.Title, &c.Checkouts); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// SetPINHash stores the PIN hash for a patron, replacing any previous one.
func (d *Database) SetPINHash(patronID int, hash string) error {
	_, err := d.setPINStmt.Exec(patronID, hash, time.Now())
	return err
}

// PINHash returns the stored hash; ok is false when the patron has no PIN.
func (d *Database) PINHash(patronID int) (hash string, ok bool, err error) {
	err = d.db.QueryRow(`SELECT pin_hash FROM credentials WHERE patron_id=?`, patronID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

func isoDate(d Date, ok bool) sql.NullString {
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day), Valid: true}
}
