package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"

	"library-catalog/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// bookView is the JSON shape of a book.
type bookView struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Genre      string  `json:"genre"`
	Kind       string  `json:"kind"`
	Pages      int     `json:"pages,omitempty"`
	FileSizeMB float64 `json:"file_size_mb,omitempty"`
	Status     string  `json:"status"`
	PatronID   *int    `json:"patron_id,omitempty"`
	Checkout   string  `json:"checkout_date,omitempty"`
	Due        string  `json:"due_date,omitempty"`
	Overdue    bool    `json:"overdue"`
}

func newBookView(b *library.Book, today library.Date) bookView {
	v := bookView{
		Title:      b.Title(),
		Author:     b.Author(),
		Genre:      b.Genre().String(),
		Kind:       b.Kind().Tag(),
		Pages:      b.PageCount(),
		FileSizeMB: b.FileSizeMB(),
		Status:     b.Status().String(),
		Overdue:    b.IsOverdue(today),
	}
	if id, ok := b.CurrentPatronID(); ok {
		v.PatronID = &id
	}
	if d, ok := b.CheckoutDate(); ok {
		v.Checkout = d.String()
	}
	if d, ok := b.DueDate(); ok {
		v.Due = d.String()
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBooks(w io.Writer, a *app, books []*library.Book, asJSON bool) error {
	lib := a.mgr.Library()
	today := lib.Today()

	if asJSON {
		views := make([]bookView, 0, len(books))
		for _, b := range books {
			views = append(views, newBookView(b, today))
		}
		return writeJSON(w, views)
	}

	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return nil
	}
	fmt.Fprintf(w, "%-30s %-25s %-12s %-12s %-25s\n", "Title", "Author", "Genre", "Status", "Borrower")
	fmt.Fprintln(w, strings.Repeat("-", 108))
	for _, b := range books {
		borrower := ""
		if id, ok := b.CurrentPatronID(); ok {
			borrower = fmt.Sprintf("ID: %d", id)
			if p, err := lib.FindPatron(id); err == nil {
				borrower = fmt.Sprintf("%s (ID: %d)", p.Name(), id)
			}
		}
		fmt.Fprintln(w, library.PrettyBook(b, borrower))
	}
	return nil
}

// readPIN reads a PIN without echo when stdin is a terminal, and a plain
// line otherwise so scripts can pipe it in.
func readPIN(w io.Writer, in io.Reader, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
