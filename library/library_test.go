package library

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	lib   *Library
	paths Paths
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		paths: Paths{
			Books:        filepath.Join(dir, "Data", "Books.txt"),
			Patrons:      filepath.Join(dir, "Data", "Patrons.txt"),
			Transactions: filepath.Join(dir, "Data", "Transactions.txt"),
		},
		now: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.Local),
	}
	f.lib = f.open()
	return f
}

// open builds a fresh Library over the fixture's files and clock.
func (f *fixture) open() *Library {
	return New(
		WithPaths(f.paths),
		WithClock(func() time.Time { return f.now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	require.NoError(t, f.lib.AddBook(NewPrintedBook("Dune", "Frank Herbert", Fiction, 412)))
	require.NoError(t, f.lib.AddBook(NewEBook("Cosmos", "Carl Sagan", Science, 2.5)))
	require.NoError(t, f.lib.AddBook(NewBook("Emma", "Jane Austen", Fiction)))
	require.NoError(t, f.lib.AddPatron(NewPatron(7, "Ada")))
	require.NoError(t, f.lib.AddPatron(NewPatron(8, "Bo")))
}

func TestLoadBooks_SkipsMalformedLines(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.paths.Books, strings.Join([]string{
		"Fiction|Dune|Frank Herbert|PrintedBook|412|Available|null|null|null",
		"Science|Cosmos|Carl Sagan|EBook|2.5|Available|null|null|null",
		"Poetry|Odes|Keats|PrintedBook|80|Available|null|null|null",
		"",
		"Mystery|Gone Girl|Gillian Flynn|PrintedBook|415|Available|null|null|null",
	}, "\n")+"\n")

	res, err := f.lib.LoadBooks(f.paths.Books)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Loaded)
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, 3, res.Malformed[0].Line)
	assert.ErrorIs(t, res.Malformed[0], ErrInvalidArgument)
	assert.Len(t, f.lib.Books(), 3)
}

func TestLoadBooks_OverlongLineIsSkipped(t *testing.T) {
	f := newFixture(t)
	long := "Fiction|" + strings.Repeat("x", 2*1024*1024) + "|Someone|Book|0"
	writeFile(t, f.paths.Books, strings.Join([]string{
		"Fiction|Dune|Frank Herbert|PrintedBook|412|Available|null|null|null",
		long,
		"Science|Cosmos|Carl Sagan|EBook|2.5|Available|null|null|null",
	}, "\n"))

	res, err := f.lib.LoadBooks(f.paths.Books)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Loaded)
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, 2, res.Malformed[0].Line)
	assert.ErrorIs(t, res.Malformed[0], ErrInvalidArgument)
	assert.Less(t, len(res.Malformed[0].Text), 100)

	_, err = f.lib.FindBook("Cosmos")
	assert.NoError(t, err, "lines after the long one still load")
}

func TestLoadBooks_RepairsPatronMismatch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.lib.AddPatron(NewPatron(5, "Ada")))
	writeFile(t, f.paths.Books, strings.Join([]string{
		"Fiction|Dune|Frank Herbert|PrintedBook|412|CheckedOut|01/01/2024|31/01/2024|null",
		"Fiction|Emma|Jane Austen|Book|0|Available|null|null|5",
	}, "\n")+"\n")

	res, err := f.lib.LoadBooks(f.paths.Books)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Loaded)
	assert.Empty(t, res.Malformed)
	assert.Len(t, f.lib.BooksByStatus(Available), 2)

	p, _ := f.lib.FindPatron(5)
	assert.Empty(t, p.Borrowed(), "a stray patron id does not link the book")
}

func TestLoadBooks_MissingFileIsIOError(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	_, err := f.lib.LoadBooks(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, ErrIO)
	assert.Len(t, f.lib.Books(), 3, "a failed load keeps the current catalog")
}

func TestLoadBooks_ToleratesCRLF(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.paths.Books, "Fiction|Dune|Frank Herbert|PrintedBook|412|Available|null|null|null\r\n")

	res, err := f.lib.LoadBooks(f.paths.Books)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Loaded)
	assert.Empty(t, res.Malformed)
}

func TestLoadTransactions_MissingFileIsEmptyLog(t *testing.T) {
	f := newFixture(t)
	res, err := f.lib.LoadTransactions(f.paths.Transactions)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Loaded)
	assert.Empty(t, f.lib.Transactions())
}

func TestLoadTransactions_UnrecognizedTypeReadsAsReturn(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.paths.Transactions, "7|Dune|checked out|01/03/2024\n7|Dune|misplaced|02/03/2024\n")

	res, err := f.lib.LoadTransactions(f.paths.Transactions)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Loaded)
	txs := f.lib.Transactions()
	assert.Equal(t, Checkout, txs[0].Type())
	assert.Equal(t, Return, txs[1].Type())
}

func TestLoadPatrons_DuplicateIDIsMalformed(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.paths.Patrons, "3|Ada\n9|Bo\n3|Cy\n")

	res, err := f.lib.LoadPatrons(f.paths.Patrons)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Loaded)
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, 3, res.Malformed[0].Line)
	assert.ErrorIs(t, res.Malformed[0], ErrConflict)

	// Stored IDs advance the sequence.
	assert.Equal(t, 10, f.lib.NewPatron("Dee").ID())
}

func TestAddPatron(t *testing.T) {
	f := newFixture(t)

	p := f.lib.NewPatron("Ada")
	assert.Equal(t, 1, p.ID())
	require.NoError(t, f.lib.AddPatron(p))
	assert.ErrorIs(t, f.lib.AddPatron(NewPatron(1, "Other")), ErrConflict)
	assert.ErrorIs(t, f.lib.AddPatron(nil), ErrInvalidArgument)
	assert.ErrorIs(t, f.lib.AddBook(nil), ErrInvalidArgument)

	require.NoError(t, f.lib.AddPatron(NewPatron(20, "Bo")))
	assert.Equal(t, 21, f.lib.NewPatron("Cy").ID())

	f.lib.ResetPatronIDs(5)
	assert.Equal(t, 5, f.lib.NewPatron("Dee").ID())
}

func TestCheckoutBook(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	require.NoError(t, f.lib.CheckoutBook(7, "Dune"))

	b, err := f.lib.FindBook("Dune")
	require.NoError(t, err)
	assert.Equal(t, CheckedOut, b.Status())
	pid, _ := b.CurrentPatronID()
	assert.Equal(t, 7, pid)
	co, _ := b.CheckoutDate()
	due, _ := b.DueDate()
	assert.Equal(t, mustDate(t, 1, 3, 2024), co)
	assert.Equal(t, co.AddDays(LoanPeriodDays), due)

	txs := f.lib.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, 7, txs[0].PatronID())
	assert.Equal(t, "Dune", txs[0].BookTitle())
	assert.Equal(t, Checkout, txs[0].Type())

	p, err := f.lib.FindPatron(7)
	require.NoError(t, err)
	assert.Equal(t, []BookKey{{Title: "Dune", Author: "Frank Herbert"}}, p.Borrowed())

	// Every checkout is persisted.
	assert.Equal(t, "7|Dune|checked out|01/03/2024\n", readFile(t, f.paths.Transactions))
	assert.Contains(t, readFile(t, f.paths.Books), "Fiction|Dune|Frank Herbert|PrintedBook|412|CheckedOut|01/03/2024|31/03/2024|7\n")
	assert.Equal(t, "7|Ada\n8|Bo\n", readFile(t, f.paths.Patrons))
}

func TestCheckoutBook_Errors(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	require.NoError(t, f.lib.CheckoutBook(7, "Dune"))

	assert.ErrorIs(t, f.lib.CheckoutBook(99, "Emma"), ErrNotFound)
	assert.ErrorIs(t, f.lib.CheckoutBook(7, "Missing"), ErrNotFound)
	assert.ErrorIs(t, f.lib.CheckoutBook(8, "Dune"), ErrConflict)
	assert.ErrorIs(t, f.lib.CheckoutBook(7, "dune"), ErrNotFound, "title lookup is exact")

	assert.Len(t, f.lib.Transactions(), 1, "failed checkouts are not logged")
}

func TestReturnBook(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	require.NoError(t, f.lib.CheckoutBook(7, "Dune"))

	assert.ErrorIs(t, f.lib.ReturnBook(8, "Dune"), ErrNotFound)

	f.now = f.now.Add(48 * time.Hour)
	require.NoError(t, f.lib.ReturnBook(7, "Dune"))

	b, _ := f.lib.FindBook("Dune")
	assert.Equal(t, Available, b.Status())
	p, _ := f.lib.FindPatron(7)
	assert.Empty(t, p.Borrowed())

	txs := f.lib.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, Return, txs[1].Type())
	assert.Equal(t, mustDate(t, 3, 3, 2024), txs[1].Date())
}

func TestCheckoutBook_SaveFailureIsReported(t *testing.T) {
	f := newFixture(t)
	blocker := filepath.Join(t.TempDir(), "file")
	writeFile(t, blocker, "")
	f.paths.Books = filepath.Join(blocker, "Books.txt")
	f.lib = f.open()
	f.seed(t)

	err := f.lib.CheckoutBook(7, "Dune")
	assert.ErrorIs(t, err, ErrIO)

	// The loan itself stands.
	b, _ := f.lib.FindBook("Dune")
	assert.Equal(t, CheckedOut, b.Status())
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	titles := func(books []*Book) []string {
		var out []string
		for _, b := range books {
			out = append(out, b.Title())
		}
		return out
	}

	assert.Equal(t, []string{"Dune"}, titles(f.lib.SearchBooksByTitle("dune")))
	assert.Equal(t, []string{"Dune"}, titles(f.lib.SearchBooksByTitle("UN")))
	assert.Equal(t, []string{"Cosmos"}, titles(f.lib.SearchBooksByAuthor("sagan")))
	assert.Equal(t, []string{"Dune", "Emma"}, titles(f.lib.SearchBooksByGenre(Fiction)))
	assert.Empty(t, f.lib.SearchBooksByGenre(Biography))
	assert.Len(t, f.lib.SearchBooksByTitle(""), 3)

	p, err := f.lib.FindPatronByName("ada")
	require.NoError(t, err)
	assert.Equal(t, 7, p.ID())
	_, err = f.lib.FindPatronByName("Zed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusAndOverdueQueries(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	require.NoError(t, f.lib.CheckoutBook(7, "Dune"))
	require.NoError(t, f.lib.CheckoutBook(7, "Emma"))

	assert.Len(t, f.lib.BooksByStatus(CheckedOut), 2)
	assert.Len(t, f.lib.BooksByStatus(Available), 1)
	assert.Empty(t, f.lib.OverdueBooks())

	f.now = f.now.AddDate(0, 2, 0)
	assert.Len(t, f.lib.OverdueBooks(), 2)

	borrowed, err := f.lib.BorrowedBooks(7)
	require.NoError(t, err)
	assert.Len(t, borrowed, 2)
	_, err = f.lib.BorrowedBooks(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotsAreCopies(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	books := f.lib.Books()
	books[0].Checkout(8, mustDate(t, 1, 1, 2024))
	b, _ := f.lib.FindBook("Dune")
	assert.Equal(t, Available, b.Status())

	p, _ := f.lib.FindPatron(7)
	require.NoError(t, p.BorrowBook(NewBook("X", "Y", Fiction), mustDate(t, 1, 1, 2024)))
	p2, _ := f.lib.FindPatron(7)
	assert.Empty(t, p2.Borrowed())
}

func TestReloadRebuildsBorrowedLists(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	require.NoError(t, f.lib.CheckoutBook(7, "Dune"))
	require.NoError(t, f.lib.CheckoutBook(8, "Cosmos"))
	require.NoError(t, f.lib.CheckoutBook(7, "Emma"))
	require.NoError(t, f.lib.ReturnBook(7, "Dune"))

	reloaded := f.open()
	require.NoError(t, reloaded.LoadData())

	p7, err := reloaded.FindPatron(7)
	require.NoError(t, err)
	assert.Equal(t, []BookKey{{Title: "Emma", Author: "Jane Austen"}}, p7.Borrowed())
	p8, _ := reloaded.FindPatron(8)
	assert.Equal(t, []BookKey{{Title: "Cosmos", Author: "Carl Sagan"}}, p8.Borrowed())

	assert.Len(t, reloaded.Transactions(), 4)
	assert.Equal(t, 9, reloaded.NewPatron("Cy").ID())

	// The returned book kept its last loan dates through the round trip.
	dune, _ := reloaded.FindBook("Dune")
	_, ok := dune.DueDate()
	assert.True(t, ok)
}

func TestLoadData_ReportsEveryFailure(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.paths.Transactions, "7|Dune|checked out|01/03/2024\n")

	err := f.lib.LoadData()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "load patrons")
	assert.Contains(t, err.Error(), "load books")
	assert.Len(t, f.lib.Transactions(), 1, "later files still load")
}

func TestSaveData_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	require.NoError(t, f.lib.SaveData())

	reloaded := f.open()
	require.NoError(t, reloaded.LoadData())
	assert.Equal(t, f.lib.Books(), reloaded.Books())
	assert.Equal(t, f.lib.Patrons(), reloaded.Patrons())
}

func TestConcurrentCheckoutsOfOneBook(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pid := range []int{7, 8} {
		i, pid := i, pid
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.lib.CheckoutBook(pid, "Emma")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.lib.Transactions(), 1)
}
