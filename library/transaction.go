package library

import (
	"fmt"
	"strings"
)

// TransactionType is the kind of circulation event.
type TransactionType int

const (
	Checkout TransactionType = iota
	Return
)

// String is the form written to the transactions file.
func (t TransactionType) String() string {
	if t == Checkout {
		return "checked out"
	}
	return "return"
}

// LookupTransactionType parses a stored type string. It ignores case and a
// trailing period and accepts the spellings older files used. ok is false
// when the string is not recognized.
func LookupTransactionType(s string) (t TransactionType, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	lower = strings.TrimSuffix(lower, ".")

	switch lower {
	case "checked out", "checkout", "checked_out", "checked-out":
		return Checkout, true
	case "return", "returned":
		return Return, true
	}
	return Return, false
}

// ParseTransactionType is the lenient form of LookupTransactionType:
// unrecognized strings become Return.
func ParseTransactionType(s string) TransactionType {
	t, _ := LookupTransactionType(s)
	return t
}

// Transaction is an immutable circulation log entry.
type Transaction struct {
	patronID   int
	bookTitle  string
	kind       TransactionType
	date       Date
	returnDate Date
}

// NewTransaction records an event on the given date. Checkout entries carry a
// return date LoanPeriodDays later.
func NewTransaction(patronID int, bookTitle string, kind TransactionType, date Date) Transaction {
	tx := Transaction{patronID: patronID, bookTitle: bookTitle, kind: kind, date: date}
	if kind == Checkout {
		tx.returnDate = date.AddDays(LoanPeriodDays)
	}
	return tx
}

func (t Transaction) PatronID() int         { return t.patronID }
func (t Transaction) BookTitle() string     { return t.bookTitle }
func (t Transaction) Type() TransactionType { return t.kind }
func (t Transaction) Date() Date            { return t.date }

// ReturnDate is only defined for checkouts.
func (t Transaction) ReturnDate() (Date, bool) {
	if t.kind != Checkout {
		return Date{}, false
	}
	return t.returnDate, true
}

// Describe renders the entry for the transaction log view.
func (t Transaction) Describe() string {
	line := fmt.Sprintf("[%s] Patron %d %s %q", t.date, t.patronID, t.kind, t.bookTitle)
	if rd, ok := t.ReturnDate(); ok {
		line += " - Return by " + rd.String()
	}
	return line
}
