package library

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Default locations of the three data files.
const (
	DefaultBooksFile        = "Data/Books.txt"
	DefaultPatronsFile      = "Data/Patrons.txt"
	DefaultTransactionsFile = "Data/Transactions.txt"
)

// Paths names the data files LoadData, SaveData and the circulation
// operations work on.
type Paths struct {
	Books        string
	Patrons      string
	Transactions string
}

// DefaultPaths returns the Data/ locations.
func DefaultPaths() Paths {
	return Paths{
		Books:        DefaultBooksFile,
		Patrons:      DefaultPatronsFile,
		Transactions: DefaultTransactionsFile,
	}
}

// Library owns every book, patron and transaction. All methods take a single
// lock; entities themselves are not synchronized.
type Library struct {
	mu sync.Mutex

	books        []*Book
	patrons      []*Patron
	transactions []Transaction
	patronIDs    IDSequence

	paths  Paths
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Library.
type Option func(*Library)

// WithPaths overrides the data file locations.
func WithPaths(p Paths) Option {
	return func(l *Library) { l.paths = p }
}

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithLogger sets the logger used for load/save reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) { l.logger = logger }
}

// New returns an empty library.
func New(opts ...Option) *Library {
	l := &Library{
		paths:  DefaultPaths(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Paths returns the configured data file locations.
func (l *Library) Paths() Paths { return l.paths }

// Today is the current local calendar day according to the library clock.
func (l *Library) Today() Date { return Today(l.now()) }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadBooks replaces the catalog with the contents of path and relinks
// patrons to the books they hold. A file that cannot be read to the end
// leaves the current catalog in place.
func (l *Library) LoadBooks(path string) (LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadBooks(path)
}

func (l *Library) loadBooks(path string) (LoadResult, error) {
	parse := func(line string) (*Book, error) {
		b, repair, err := parseBookLine(line)
		if err == nil && repair != "" {
			l.logger.Warn("repaired book line", "file", path, "title", b.title, "repair", repair)
		}
		return b, err
	}

	books, res, err := readRecords(path, parse)
	l.report(res)
	if err != nil {
		return res, err
	}
	l.books = books
	l.rebuildBorrowed()
	return res, err
}

// LoadPatrons replaces the patron list with the contents of path. Stored IDs
// advance the ID sequence; a repeated ID is reported as a malformed line.
func (l *Library) LoadPatrons(path string) (LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadPatrons(path)
}

func (l *Library) loadPatrons(path string) (LoadResult, error) {
	seen := make(map[int]bool)
	parse := func(line string) (*Patron, error) {
		p, err := parsePatronLine(line)
		if err != nil {
			return nil, err
		}
		if seen[p.id] {
			return nil, fmt.Errorf("%w: duplicate patron id %d", ErrConflict, p.id)
		}
		seen[p.id] = true
		return p, nil
	}

	patrons, res, err := readRecords(path, parse)
	l.report(res)
	if err != nil {
		return res, err
	}
	for _, p := range patrons {
		l.patronIDs.Observe(p.id)
	}
	l.patrons = patrons
	l.rebuildBorrowed()
	return res, err
}

// LoadTransactions replaces the transaction log with the contents of path. A
// missing file means an empty log.
func (l *Library) LoadTransactions(path string) (LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadTransactions(path)
}

func (l *Library) loadTransactions(path string) (LoadResult, error) {
	parse := func(line string) (Transaction, error) {
		tx, recognized, err := parseTransactionLine(line)
		if err == nil && !recognized {
			l.logger.Warn("unrecognized transaction type, reading as return", "file", path, "line", line)
		}
		return tx, err
	}

	txs, res, err := readRecords(path, parse)
	if err != nil && isNotExist(err) {
		l.logger.Info("no transactions file found, starting with empty log", "file", path)
		l.transactions = nil
		return LoadResult{File: path}, nil
	}
	l.report(res)
	if err != nil {
		return res, err
	}
	l.transactions = txs
	return res, err
}

// LoadData loads patrons, books and transactions from the configured paths,
// in that order, then relinks patrons to their books. Each step is attempted
// even if an earlier one fails; the failures are logged and returned joined.
func (l *Library) LoadData() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if _, err := l.loadPatrons(l.paths.Patrons); err != nil {
		errs = append(errs, fmt.Errorf("load patrons: %w", err))
	}
	if _, err := l.loadBooks(l.paths.Books); err != nil {
		errs = append(errs, fmt.Errorf("load books: %w", err))
	}
	if _, err := l.loadTransactions(l.paths.Transactions); err != nil {
		errs = append(errs, fmt.Errorf("load transactions: %w", err))
	}
	l.rebuildBorrowed()

	if err := errors.Join(errs...); err != nil {
		l.logger.Error("error loading data", "err", err)
		return err
	}
	l.logger.Info("all data loaded", "books", len(l.books), "patrons", len(l.patrons), "transactions", len(l.transactions))
	return nil
}

// rebuildBorrowed derives every patron's borrowed list from book state, the
// only place the relationship is stored.
func (l *Library) rebuildBorrowed() {
	for _, p := range l.patrons {
		p.clearBorrowed()
	}
	for _, b := range l.books {
		if b.status != CheckedOut {
			continue
		}
		pid, ok := b.CurrentPatronID()
		if !ok {
			continue
		}
		if p := l.findPatron(pid); p != nil {
			p.attach(b.Key())
		}
	}
}

func (l *Library) report(res LoadResult) {
	for _, le := range res.Malformed {
		l.logger.Warn("skipping malformed line", "file", res.File, "line", le.Line, "err", le.Err)
	}
	l.logger.Info("loaded records", "file", res.File, "count", res.Loaded)
}

// ---------------------------------------------------------------------------
// Saving
// ---------------------------------------------------------------------------

// SaveBooks overwrites path with the catalog.
func (l *Library) SaveBooks(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveBooks(path)
}

func (l *Library) saveBooks(path string) error {
	if err := writeRecords(path, l.books, formatBookLine); err != nil {
		return err
	}
	l.logger.Info("saved records", "file", path, "count", len(l.books))
	return nil
}

// SavePatrons overwrites path with the patron list.
func (l *Library) SavePatrons(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.savePatrons(path)
}

func (l *Library) savePatrons(path string) error {
	if err := writeRecords(path, l.patrons, formatPatronLine); err != nil {
		return err
	}
	l.logger.Info("saved records", "file", path, "count", len(l.patrons))
	return nil
}

// SaveTransactions overwrites path with the transaction log.
func (l *Library) SaveTransactions(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveTransactions(path)
}

func (l *Library) saveTransactions(path string) error {
	if err := writeRecords(path, l.transactions, formatTransactionLine); err != nil {
		return err
	}
	l.logger.Info("saved records", "file", path, "count", len(l.transactions))
	return nil
}

// SaveData writes books, patrons and transactions to the configured paths.
// Like LoadData it attempts every file and returns the joined failures.
func (l *Library) SaveData() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveData()
}

func (l *Library) saveData() error {
	err := errors.Join(
		l.saveBooks(l.paths.Books),
		l.savePatrons(l.paths.Patrons),
		l.saveTransactions(l.paths.Transactions),
	)
	if err != nil {
		l.logger.Error("error saving data", "err", err)
	}
	return err
}

// ---------------------------------------------------------------------------
// Catalog and membership
// ---------------------------------------------------------------------------

// AddBook appends book to the catalog. The library takes ownership of it.
func (l *Library) AddBook(book *Book) error {
	if book == nil {
		return fmt.Errorf("%w: cannot add a nil book", ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.books = append(l.books, book)
	l.logger.Debug("book added", "title", book.title, "author", book.author)
	return nil
}

// NewPatron builds a patron with the next free ID. It is not added to the
// library until AddPatron is called.
func (l *Library) NewPatron(name string) *Patron {
	l.mu.Lock()
	defer l.mu.Unlock()
	return NewPatron(l.patronIDs.Next(), name)
}

// AddPatron appends patron. Its ID must not be in use; an ID assigned outside
// the sequence advances it.
func (l *Library) AddPatron(patron *Patron) error {
	if patron == nil {
		return fmt.Errorf("%w: cannot add a nil patron", ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.findPatron(patron.id) != nil {
		return fmt.Errorf("%w: patron with ID %d already exists", ErrConflict, patron.id)
	}
	l.patronIDs.Observe(patron.id)
	l.patrons = append(l.patrons, patron)
	l.logger.Debug("patron added", "id", patron.id, "name", patron.name)
	return nil
}

// ResetPatronIDs restarts the patron ID sequence at start.
func (l *Library) ResetPatronIDs(start int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patronIDs.Reset(start)
}

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

// CheckoutBook lends the book titled title to the patron, logs a checkout
// transaction and persists all three files.
func (l *Library) CheckoutBook(patronID int, title string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	patron, book, err := l.resolve(patronID, title)
	if err != nil {
		return err
	}
	today := Today(l.now())
	if err := patron.BorrowBook(book, today); err != nil {
		return err
	}
	l.transactions = append(l.transactions, NewTransaction(patronID, title, Checkout, today))

	if err := l.saveData(); err != nil {
		return fmt.Errorf("checkout recorded but not saved: %w", err)
	}
	return nil
}

// ReturnBook takes the book titled title back from the patron, logs a return
// transaction and persists all three files.
func (l *Library) ReturnBook(patronID int, title string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	patron, book, err := l.resolve(patronID, title)
	if err != nil {
		return err
	}
	if err := patron.ReturnBook(book); err != nil {
		return err
	}
	l.transactions = append(l.transactions, NewTransaction(patronID, title, Return, Today(l.now())))

	if err := l.saveData(); err != nil {
		return fmt.Errorf("return recorded but not saved: %w", err)
	}
	return nil
}

func (l *Library) resolve(patronID int, title string) (*Patron, *Book, error) {
	patron := l.findPatron(patronID)
	if patron == nil {
		return nil, nil, fmt.Errorf("%w: patron with ID %d", ErrNotFound, patronID)
	}
	book := l.findBook(title)
	if book == nil {
		return nil, nil, fmt.Errorf("%w: book %q", ErrNotFound, title)
	}
	return patron, book, nil
}

// ---------------------------------------------------------------------------
// Lookup and search
// ---------------------------------------------------------------------------

// FindBook returns a copy of the first book titled exactly title.
func (l *Library) FindBook(title string) (*Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b := l.findBook(title); b != nil {
		return b.clone(), nil
	}
	return nil, fmt.Errorf("%w: book %q", ErrNotFound, title)
}

// FindPatron returns a copy of the patron with the given ID.
func (l *Library) FindPatron(id int) (*Patron, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p := l.findPatron(id); p != nil {
		return p.clone(), nil
	}
	return nil, fmt.Errorf("%w: patron with ID %d", ErrNotFound, id)
}

// FindPatronByName returns a copy of the first patron whose name matches,
// ignoring case.
func (l *Library) FindPatronByName(name string) (*Patron, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.patrons {
		if strings.EqualFold(p.name, name) {
			return p.clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: patron named %q", ErrNotFound, name)
}

// SearchBooksByTitle returns books whose title contains substr, ignoring case.
func (l *Library) SearchBooksByTitle(substr string) []*Book {
	needle := strings.ToLower(substr)
	return l.filterBooks(func(b *Book) bool {
		return strings.Contains(strings.ToLower(b.title), needle)
	})
}

// SearchBooksByAuthor returns books whose author contains substr, ignoring case.
func (l *Library) SearchBooksByAuthor(substr string) []*Book {
	needle := strings.ToLower(substr)
	return l.filterBooks(func(b *Book) bool {
		return strings.Contains(strings.ToLower(b.author), needle)
	})
}

// SearchBooksByGenre returns the books of one genre.
func (l *Library) SearchBooksByGenre(genre Genre) []*Book {
	return l.filterBooks(func(b *Book) bool { return b.genre == genre })
}

// BooksByStatus returns the available or the checked-out books.
func (l *Library) BooksByStatus(status Status) []*Book {
	return l.filterBooks(func(b *Book) bool { return b.status == status })
}

// OverdueBooks returns the checked-out books that are past due today.
func (l *Library) OverdueBooks() []*Book {
	today := Today(l.now())
	return l.filterBooks(func(b *Book) bool { return b.IsOverdue(today) })
}

// BorrowedBooks resolves the patron's borrowed list to copies of the books.
func (l *Library) BorrowedBooks(patronID int) ([]*Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.findPatron(patronID)
	if p == nil {
		return nil, fmt.Errorf("%w: patron with ID %d", ErrNotFound, patronID)
	}
	books := make([]*Book, 0, len(p.borrowed))
	for _, key := range p.borrowed {
		if b := l.findBookByKey(key); b != nil {
			books = append(books, b.clone())
		}
	}
	return books, nil
}

// Books returns copies of every book in catalog order.
func (l *Library) Books() []*Book {
	return l.filterBooks(func(*Book) bool { return true })
}

// Patrons returns copies of every patron in registration order.
func (l *Library) Patrons() []*Patron {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Patron, len(l.patrons))
	for i, p := range l.patrons {
		out[i] = p.clone()
	}
	return out
}

// Transactions returns the log in append order.
func (l *Library) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.transactions)
}

func (l *Library) filterBooks(keep func(*Book) bool) []*Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*Book
	for _, b := range l.books {
		if keep(b) {
			out = append(out, b.clone())
		}
	}
	return out
}

func (l *Library) findBook(title string) *Book {
	for _, b := range l.books {
		if b.title == title {
			return b
		}
	}
	return nil
}

func (l *Library) findBookByKey(key BookKey) *Book {
	for _, b := range l.books {
		if b.Key() == key {
			return b
		}
	}
	return nil
}

func (l *Library) findPatron(id int) *Patron {
	for _, p := range l.patrons {
		if p.id == id {
			return p
		}
	}
	return nil
}
