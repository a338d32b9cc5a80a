package library

import (
	"fmt"
	"slices"
)

// Patron is a library member. The borrowed list holds book identifiers only;
// the Library owns the books themselves.
type Patron struct {
	id       int
	name     string
	borrowed []BookKey
}

// NewPatron builds a patron with a known ID. Use Library.NewPatron to draw the
// next ID from the library's sequence.
func NewPatron(id int, name string) *Patron {
	return &Patron{id: id, name: name}
}

func (p *Patron) ID() int      { return p.id }
func (p *Patron) Name() string { return p.name }

// Borrowed returns the identifiers of the books currently on loan, in borrow order.
func (p *Patron) Borrowed() []BookKey { return slices.Clone(p.borrowed) }

// HasBorrowed reports whether the book is on this patron's list.
func (p *Patron) HasBorrowed(key BookKey) bool { return slices.Contains(p.borrowed, key) }

// BorrowBook lends book to the patron and checks it out from today.
func (p *Patron) BorrowBook(book *Book, today Date) error {
	if book == nil {
		return fmt.Errorf("%w: cannot borrow a nil book", ErrInvalidArgument)
	}
	if book.Status() != Available {
		return fmt.Errorf("%w: book %q is not available", ErrConflict, book.Title())
	}
	if slices.ContainsFunc(p.borrowed, func(k BookKey) bool { return k.Title == book.Title() }) {
		return fmt.Errorf("%w: patron %d already has %q borrowed", ErrConflict, p.id, book.Title())
	}

	p.borrowed = append(p.borrowed, book.Key())
	book.Checkout(p.id, today)
	return nil
}

// ReturnBook takes book back from the patron and makes it available.
func (p *Patron) ReturnBook(book *Book) error {
	if book == nil {
		return fmt.Errorf("%w: cannot return a nil book", ErrInvalidArgument)
	}
	i := slices.Index(p.borrowed, book.Key())
	if i < 0 {
		return fmt.Errorf("%w: patron %d did not borrow %q", ErrNotFound, p.id, book.Title())
	}

	p.borrowed = slices.Delete(p.borrowed, i, i+1)
	book.Return()
	return nil
}

func (p *Patron) attach(key BookKey) { p.borrowed = append(p.borrowed, key) }

func (p *Patron) clearBorrowed() { p.borrowed = nil }

func (p *Patron) clone() *Patron {
	return &Patron{id: p.id, name: p.name, borrowed: slices.Clone(p.borrowed)}
}

// IDSequence hands out monotonically increasing patron IDs starting at 1.
// The zero value is ready to use.
type IDSequence struct {
	next int
}

// Next returns a fresh ID and advances the sequence.
func (s *IDSequence) Next() int {
	if s.next < 1 {
		s.next = 1
	}
	id := s.next
	s.next++
	return id
}

// Observe advances the sequence past an ID that was assigned elsewhere, for
// example one restored from the patrons file.
func (s *IDSequence) Observe(id int) {
	if id >= s.next {
		s.next = id + 1
	}
}

// Peek returns the ID the next call to Next will hand out.
func (s *IDSequence) Peek() int {
	if s.next < 1 {
		return 1
	}
	return s.next
}

// Reset restarts the sequence at start.
func (s *IDSequence) Reset(start int) { s.next = start }
