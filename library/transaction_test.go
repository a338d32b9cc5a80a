package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupTransactionType(t *testing.T) {
	tests := []struct {
		in     string
		want   TransactionType
		wantOK bool
	}{
		{"checked out", Checkout, true},
		{"Checked Out", Checkout, true},
		{"checked out.", Checkout, true},
		{"checkout", Checkout, true},
		{"CHECKED_OUT", Checkout, true},
		{"checked-out", Checkout, true},
		{"return", Return, true},
		{"Returned.", Return, true},
		{" return ", Return, true},
		{"lost", Return, false},
		{"", Return, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := LookupTransactionType(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, ParseTransactionType(tt.in))
		})
	}
}

func TestTransactionType_StringParses(t *testing.T) {
	for _, tt := range []TransactionType{Checkout, Return} {
		got, ok := LookupTransactionType(tt.String())
		assert.True(t, ok)
		assert.Equal(t, tt, got)
	}
}

func TestNewTransaction_ReturnDate(t *testing.T) {
	day := mustDate(t, 1, 3, 2024)

	co := NewTransaction(7, "Dune", Checkout, day)
	rd, ok := co.ReturnDate()
	assert.True(t, ok)
	assert.Equal(t, mustDate(t, 31, 3, 2024), rd)
	assert.Equal(t, `[01/03/2024] Patron 7 checked out "Dune" - Return by 31/03/2024`, co.Describe())

	ret := NewTransaction(7, "Dune", Return, day)
	_, ok = ret.ReturnDate()
	assert.False(t, ok)
	assert.Equal(t, `[01/03/2024] Patron 7 return "Dune"`, ret.Describe())
	assert.Equal(t, 7, ret.PatronID())
	assert.Equal(t, "Dune", ret.BookTitle())
	assert.Equal(t, Return, ret.Type())
	assert.Equal(t, day, ret.Date())
}
