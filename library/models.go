package library

import (
	"fmt"
	"strings"
)

// LoanPeriodDays is how long a checkout lasts before the book is due.
const LoanPeriodDays = 30

// Genre classifies a book.
type Genre int

const (
	Fiction Genre = iota
	NonFiction
	Mystery
	Science
	Biography
)

// Genres lists every genre in declaration order.
var Genres = []Genre{Fiction, NonFiction, Mystery, Science, Biography}

func (g Genre) String() string {
	switch g {
	case Fiction:
		return "Fiction"
	case NonFiction:
		return "Non-Fiction"
	case Mystery:
		return "Mystery"
	case Science:
		return "Science"
	case Biography:
		return "Biography"
	default:
		return "Unknown"
	}
}

// ParseGenre is the exact inverse of Genre.String.
func ParseGenre(s string) (Genre, error) {
	for _, g := range Genres {
		if g.String() == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid genre string %q", ErrInvalidArgument, s)
}

// Status is the circulation state of a book.
type Status int

const (
	Available Status = iota
	CheckedOut
)

// String is the human-readable form.
func (s Status) String() string {
	if s == CheckedOut {
		return "Checked Out"
	}
	return "Available"
}

// Kind tags the edition variant of a book.
type Kind int

const (
	KindBase Kind = iota
	KindPrinted
	KindEBook
)

// Tag is the name written to the books file.
func (k Kind) Tag() string {
	switch k {
	case KindPrinted:
		return "PrintedBook"
	case KindEBook:
		return "EBook"
	default:
		return "Book"
	}
}

// KindFromTag maps a stored tag back to a Kind. Unknown tags are base books.
func KindFromTag(tag string) Kind {
	switch tag {
	case "PrintedBook":
		return KindPrinted
	case "EBook":
		return KindEBook
	default:
		return KindBase
	}
}

// BookKey identifies a book. Two catalog entries with the same title and
// author are the same book.
type BookKey struct {
	Title  string
	Author string
}

// Book is a catalog entry. The variant-specific data lives next to the common
// fields and is selected by Kind.
type Book struct {
	title  string
	author string
	genre  Genre
	kind   Kind

	pageCount  int
	fileSizeMB float64

	status          Status
	checkoutDate    *Date
	dueDate         *Date
	currentPatronID *int
}

// NewBook creates an available base edition.
func NewBook(title, author string, genre Genre) *Book {
	return &Book{title: title, author: author, genre: genre}
}

// NewPrintedBook creates an available printed edition.
func NewPrintedBook(title, author string, genre Genre, pages int) *Book {
	return &Book{title: title, author: author, genre: genre, kind: KindPrinted, pageCount: pages}
}

// NewEBook creates an available electronic edition.
func NewEBook(title, author string, genre Genre, sizeMB float64) *Book {
	return &Book{title: title, author: author, genre: genre, kind: KindEBook, fileSizeMB: sizeMB}
}

func (b *Book) Title() string       { return b.title }
func (b *Book) Author() string      { return b.author }
func (b *Book) Genre() Genre        { return b.genre }
func (b *Book) Kind() Kind          { return b.kind }
func (b *Book) Status() Status      { return b.status }
func (b *Book) PageCount() int      { return b.pageCount }
func (b *Book) FileSizeMB() float64 { return b.fileSizeMB }
func (b *Book) Key() BookKey        { return BookKey{Title: b.title, Author: b.author} }

// CheckoutDate is the start of the current or, after a return, the last loan.
func (b *Book) CheckoutDate() (Date, bool) { return optDate(b.checkoutDate) }

// DueDate is the end of the current or, after a return, the last loan.
func (b *Book) DueDate() (Date, bool) { return optDate(b.dueDate) }

// CurrentPatronID is set exactly while the book is checked out.
func (b *Book) CurrentPatronID() (int, bool) {
	if b.currentPatronID == nil {
		return 0, false
	}
	return *b.currentPatronID, true
}

// Equal compares title and author, case-sensitively.
func (b *Book) Equal(other *Book) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.Key() == other.Key()
}

// Checkout marks the book as lent to patronID from today. Availability is the
// caller's precondition; see Patron.BorrowBook.
func (b *Book) Checkout(patronID int, today Date) {
	due := today.AddDays(LoanPeriodDays)
	b.status = CheckedOut
	b.currentPatronID = &patronID
	b.checkoutDate = &today
	b.dueDate = &due
}

// Return makes the book available again. The dates of the finished loan are
// kept as the last checkout record.
func (b *Book) Return() {
	b.status = Available
	b.currentPatronID = nil
}

// IsOverdue reports whether the book is checked out past its due date.
func (b *Book) IsOverdue(today Date) bool {
	if b.status != CheckedOut || b.dueDate == nil {
		return false
	}
	return today.After(*b.dueDate)
}

// DaysOverdue is 0 unless the book is overdue.
func (b *Book) DaysOverdue(today Date) int {
	if !b.IsOverdue(today) {
		return 0
	}
	return b.dueDate.DaysUntil(today)
}

// Describe renders a one-line summary for listings.
func (b *Book) Describe(today Date) string {
	var sb strings.Builder
	switch b.kind {
	case KindPrinted:
		sb.WriteString("[Printed] ")
	case KindEBook:
		sb.WriteString("[E-Book] ")
	default:
		sb.WriteString("Unknown Type ")
	}
	fmt.Fprintf(&sb, "%s - %s, %s [%s", b.title, b.author, b.genre, b.status)
	if b.IsOverdue(today) {
		sb.WriteString(" - OVERDUE!")
	}
	sb.WriteString("]")
	switch b.kind {
	case KindPrinted:
		fmt.Fprintf(&sb, " (Pages: %d)", b.pageCount)
	case KindEBook:
		fmt.Fprintf(&sb, " (File Size: %.3f MB)", b.fileSizeMB)
	}
	return sb.String()
}

func (b *Book) clone() *Book {
	c := *b
	return &c
}

func optDate(d *Date) (Date, bool) {
	if d == nil {
		return Date{}, false
	}
	return *d, true
}
