package library

import (
	"fmt"
	"strconv"
	"strings"
)

// Line formats of the three data files. Fields are separated by '|' with no
// quoting, so a '|' inside a title, author or name corrupts the line.
//
//	books:        genre|title|author|kind|kindExtra|status|checkoutDate|dueDate|patronId
//	patrons:      id|name
//	transactions: patronId|bookTitle|type|DD/MM/YYYY

const (
	fieldSep  = "|"
	nullField = "null"

	statusAvailableField  = "Available"
	statusCheckedOutField = "CheckedOut"
)

func formatBookLine(b *Book) string {
	var extra string
	switch b.kind {
	case KindEBook:
		extra = strconv.FormatFloat(b.fileSizeMB, 'f', -1, 64)
	case KindPrinted:
		extra = strconv.Itoa(b.pageCount)
	default:
		extra = "0"
	}

	status := statusAvailableField
	if b.status == CheckedOut {
		status = statusCheckedOutField
	}

	patron := nullField
	if b.currentPatronID != nil {
		patron = strconv.Itoa(*b.currentPatronID)
	}

	return strings.Join([]string{
		b.genre.String(),
		b.title,
		b.author,
		b.kind.Tag(),
		extra,
		status,
		formatOptDate(b.checkoutDate),
		formatOptDate(b.dueDate),
		patron,
	}, fieldSep)
}

// parseBookLine also returns a description of any repair it made to an
// inconsistent line, or "" when the line was consistent.
func parseBookLine(line string) (*Book, string, error) {
	f := strings.Split(line, fieldSep)
	if len(f) < 5 {
		return nil, "", fmt.Errorf("%w: expected at least 5 fields, got %d", ErrInvalidArgument, len(f))
	}

	genre, err := ParseGenre(f[0])
	if err != nil {
		return nil, "", err
	}

	var b *Book
	switch KindFromTag(f[3]) {
	case KindEBook:
		size, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return nil, "", fmt.Errorf("%w: file size %q: %v", ErrInvalidArgument, f[4], err)
		}
		b = NewEBook(f[1], f[2], genre, size)
	case KindPrinted:
		pages, err := strconv.Atoi(f[4])
		if err != nil {
			return nil, "", fmt.Errorf("%w: page count %q: %v", ErrInvalidArgument, f[4], err)
		}
		b = NewPrintedBook(f[1], f[2], genre, pages)
	default:
		b = NewBook(f[1], f[2], genre)
	}

	switch status := field(f, 5); status {
	case "", statusAvailableField:
		b.status = Available
	case statusCheckedOutField:
		b.status = CheckedOut
	default:
		return nil, "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}

	if b.checkoutDate, err = parseOptDate(field(f, 6)); err != nil {
		return nil, "", err
	}
	if b.dueDate, err = parseOptDate(field(f, 7)); err != nil {
		return nil, "", err
	}
	if pid := field(f, 8); pid != "" && pid != nullField {
		id, err := strconv.Atoi(pid)
		if err != nil {
			return nil, "", fmt.Errorf("%w: patron id %q: %v", ErrInvalidArgument, pid, err)
		}
		b.currentPatronID = &id
	}

	// A checked-out book nobody holds could never be returned, so it is
	// loaded as available with its dates kept as the last loan.
	var repair string
	switch {
	case b.status == CheckedOut && b.currentPatronID == nil:
		b.status = Available
		repair = "checked out without a patron, loaded as available"
	case b.status == Available && b.currentPatronID != nil:
		repair = fmt.Sprintf("available but names patron %d, patron ignored", *b.currentPatronID)
		b.currentPatronID = nil
	}
	return b, repair, nil
}

func formatPatronLine(p *Patron) string {
	return strconv.Itoa(p.id) + fieldSep + p.name
}

func parsePatronLine(line string) (*Patron, error) {
	f := strings.Split(line, fieldSep)
	if len(f) < 2 {
		return nil, fmt.Errorf("%w: expected id|name", ErrInvalidArgument)
	}
	id, err := strconv.Atoi(f[0])
	if err != nil {
		return nil, fmt.Errorf("%w: patron id %q: %v", ErrInvalidArgument, f[0], err)
	}
	return NewPatron(id, f[1]), nil
}

func formatTransactionLine(t Transaction) string {
	return strings.Join([]string{
		strconv.Itoa(t.patronID),
		t.bookTitle,
		t.kind.String(),
		t.date.String(),
	}, fieldSep)
}

// parseTransactionLine also reports whether the type string was recognized;
// unrecognized types are read as returns.
func parseTransactionLine(line string) (Transaction, bool, error) {
	f := strings.Split(line, fieldSep)
	if len(f) < 4 {
		return Transaction{}, false, fmt.Errorf("%w: expected 4 fields, got %d", ErrInvalidArgument, len(f))
	}
	pid, err := strconv.Atoi(f[0])
	if err != nil {
		return Transaction{}, false, fmt.Errorf("%w: patron id %q: %v", ErrInvalidArgument, f[0], err)
	}
	date, err := ParseDate(f[3])
	if err != nil {
		return Transaction{}, false, err
	}
	kind, ok := LookupTransactionType(f[2])
	return NewTransaction(pid, f[1], kind, date), ok, nil
}

func field(f []string, i int) string {
	if i < len(f) {
		return f[i]
	}
	return ""
}

func formatOptDate(d *Date) string {
	if d == nil {
		return nullField
	}
	return d.String()
}

func parseOptDate(s string) (*Date, error) {
	if s == "" || s == nullField {
		return nil, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
