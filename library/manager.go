package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrAuthentication is returned when a patron PIN does not match.
var ErrAuthentication = errors.New("authentication failed")

// LibraryManager is a thin façade over the Library and its SQLite mirror,
// keeping CLI code simple.
type LibraryManager struct {
	lib    *Library
	db     *Database
	logger *slog.Logger
}

// NewLibraryManager loads the data files named by cfg and opens the mirror
// when one is configured. Load problems are logged, not fatal: the manager
// starts with whatever could be read.
func NewLibraryManager(cfg Config, opts ...Option) (*LibraryManager, error) {
	lib := New(append([]Option{WithPaths(cfg.Paths())}, opts...)...)
	if err := lib.LoadData(); err != nil {
		lib.logger.Warn("starting with partially loaded data", "err", err)
	}

	lm := &LibraryManager{lib: lib, logger: lib.logger}
	if cfg.MirrorFile != "" {
		db, err := NewDatabase(cfg.MirrorFile)
		if err != nil {
			return nil, err
		}
		lm.db = db
		lm.refreshMirror()
	}
	return lm, nil
}

// Close closes the mirror, if any.
func (lm *LibraryManager) Close() error {
	if lm.db == nil {
		return nil
	}
	return lm.db.Close()
}

// Library exposes the underlying aggregate for read-only queries.
func (lm *LibraryManager) Library() *Library { return lm.lib }

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(b *Book) error {
	if err := lm.lib.AddBook(b); err != nil {
		return err
	}
	return lm.persist()
}

// AddBooks adds a batch of books and saves once. Nothing is added when the
// batch contains a nil book.
func (lm *LibraryManager) AddBooks(books []*Book) error {
	for _, b := range books {
		if b == nil {
			return fmt.Errorf("%w: cannot add a nil book", ErrInvalidArgument)
		}
	}
	for _, b := range books {
		if err := lm.lib.AddBook(b); err != nil {
			return err
		}
	}
	return lm.persist()
}

// ------------------ Patron helpers ------------------

// RegisterPatron adds a patron under the next free ID and saves.
func (lm *LibraryManager) RegisterPatron(name string) (*Patron, error) {
	p := lm.lib.NewPatron(name)
	registered := p.clone()
	if err := lm.lib.AddPatron(p); err != nil {
		return nil, err
	}
	if err := lm.persist(); err != nil {
		return nil, err
	}
	return registered, nil
}

// LookupPatron accepts a numeric ID or a name.
func (lm *LibraryManager) LookupPatron(idOrName string) (*Patron, error) {
	s := strings.TrimSpace(idOrName)
	if id, err := strconv.Atoi(s); err == nil {
		return lm.lib.FindPatron(id)
	}
	return lm.lib.FindPatronByName(s)
}

// SetPatronPIN hashes pin with bcrypt and stores it in the mirror.
func (lm *LibraryManager) SetPatronPIN(patronID int, pin string) error {
	if lm.db == nil {
		return fmt.Errorf("%w: PINs need a mirror database", ErrInvalidArgument)
	}
	if strings.TrimSpace(pin) == "" {
		return fmt.Errorf("%w: PIN cannot be empty", ErrInvalidArgument)
	}
	if _, err := lm.lib.FindPatron(patronID); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash PIN: %w", err)
	}
	return lm.db.SetPINHash(patronID, string(hash))
}

// HasPIN reports whether the patron must authenticate.
func (lm *LibraryManager) HasPIN(patronID int) (bool, error) {
	if lm.db == nil {
		return false, nil
	}
	_, ok, err := lm.db.PINHash(patronID)
	return ok, err
}

// AuthenticatePatron checks pin against the stored hash. Patrons without a
// PIN always pass.
func (lm *LibraryManager) AuthenticatePatron(patronID int, pin string) error {
	if lm.db == nil {
		return nil
	}
	hash, ok, err := lm.db.PINHash(patronID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return fmt.Errorf("%w: patron %d", ErrAuthentication, patronID)
	}
	return nil
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) CheckoutBook(patronID int, title string) error {
	if err := lm.lib.CheckoutBook(patronID, title); err != nil {
		return err
	}
	lm.refreshMirror()
	return nil
}

func (lm *LibraryManager) ReturnBook(patronID int, title string) error {
	if err := lm.lib.ReturnBook(patronID, title); err != nil {
		return err
	}
	lm.refreshMirror()
	return nil
}

// ------------------ Reports ------------------

// Popular returns the most borrowed titles from the mirror.
func (lm *LibraryManager) Popular(limit int) ([]TitleCount, error) {
	if lm.db == nil {
		return nil, fmt.Errorf("%w: statistics need a mirror database", ErrInvalidArgument)
	}
	return lm.db.CheckoutCounts(limit)
}

// SearchMirror matches q against titles and authors in the mirror.
func (lm *LibraryManager) SearchMirror(q string) ([]*BookRow, error) {
	if lm.db == nil {
		return nil, fmt.Errorf("%w: mirror search needs a mirror database", ErrInvalidArgument)
	}
	return lm.db.SearchBooks(q)
}

// SaveData writes all files and refreshes the mirror.
func (lm *LibraryManager) SaveData() error { return lm.persist() }

func (lm *LibraryManager) persist() error {
	if err := lm.lib.SaveData(); err != nil {
		return err
	}
	lm.refreshMirror()
	return nil
}

// refreshMirror is best effort; the flat files remain authoritative.
func (lm *LibraryManager) refreshMirror() {
	if lm.db == nil {
		return
	}
	if err := lm.db.SyncCatalog(lm.lib.Books(), lm.lib.Patrons(), lm.lib.Transactions()); err != nil {
		lm.logger.Warn("mirror refresh failed", "err", err)
	}
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book, borrowerName string) string {
	return fmt.Sprintf("%-30s %-25s %-12s %-12s %-25s", truncate(b.Title(), 30), truncate(b.Author(), 25), b.Genre(), b.Status(), borrowerName)
}

// PrettyPatron formats a patron for lists.
func PrettyPatron(p *Patron) string {
	return fmt.Sprintf("%-5d %-30s %d", p.ID(), truncate(p.Name(), 30), len(p.Borrowed()))
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
