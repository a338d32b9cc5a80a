package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List, add and search books",
	}
	cmd.AddCommand(newBooksListCmd(a))
	cmd.AddCommand(newBooksAddCmd(a))
	cmd.AddCommand(newBooksSearchCmd(a))
	return cmd
}

func newBooksListCmd(a *app) *cobra.Command {
	var available, checkedOut, asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if available && checkedOut {
				return fmt.Errorf("--available and --checked-out are mutually exclusive")
			}
			lib := a.mgr.Library()
			books := lib.Books()
			switch {
			case available:
				books = lib.BooksByStatus(library.Available)
			case checkedOut:
				books = lib.BooksByStatus(library.CheckedOut)
			}
			return printBooks(cmd.OutOrStdout(), a, books, asJSON)
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "Only available books")
	cmd.Flags().BoolVar(&checkedOut, "checked-out", false, "Only checked-out books")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newBooksAddCmd(a *app) *cobra.Command {
	var (
		genre  string
		kind   string
		pages  int
		sizeMB float64
	)

	cmd := &cobra.Command{
		Use:   "add <title> <author>",
		Short: "Add a book to the catalog",
		Long: `Add a book to the catalog.

Examples:
  library-catalog books add "Dune" "Frank Herbert" --genre Fiction --kind printed --pages 412
  library-catalog books add "Cosmos" "Carl Sagan" --genre Science --kind ebook --size 2.5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := library.ParseGenre(genre)
			if err != nil {
				return err
			}
			title, author := args[0], args[1]

			var b *library.Book
			switch kind {
			case "printed":
				b = library.NewPrintedBook(title, author, g, pages)
			case "ebook":
				b = library.NewEBook(title, author, g, sizeMB)
			case "base", "":
				b = library.NewBook(title, author, g)
			default:
				return fmt.Errorf("unknown kind %q (choose printed, ebook or base)", kind)
			}

			if err := a.mgr.AddBook(b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book '%s' by %s added to library.\n", title, author)
			return nil
		},
	}
	cmd.Flags().StringVarP(&genre, "genre", "g", "Fiction", "Fiction, Non-Fiction, Mystery, Science or Biography")
	cmd.Flags().StringVarP(&kind, "kind", "k", "printed", "printed, ebook or base")
	cmd.Flags().IntVar(&pages, "pages", 0, "Page count of a printed book")
	cmd.Flags().Float64Var(&sizeMB, "size", 0, "File size in MB of an e-book")
	return cmd
}

func newBooksSearchCmd(a *app) *cobra.Command {
	var by string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search books by title, author or genre",
		Long: `Search the catalog.

Title and author searches match a case-insensitive substring; genre
searches match exactly. "any" searches titles and authors in the SQLite
mirror.

Examples:
  library-catalog books search dune
  library-catalog books search --by author herbert
  library-catalog books search --by genre Mystery`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := a.mgr.Library()
			query := args[0]

			var books []*library.Book
			switch by {
			case "title":
				books = lib.SearchBooksByTitle(query)
			case "author":
				books = lib.SearchBooksByAuthor(query)
			case "genre":
				g, err := library.ParseGenre(query)
				if err != nil {
					return err
				}
				books = lib.SearchBooksByGenre(g)
			case "any":
				rows, err := a.mgr.SearchMirror(query)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), rows)
				}
				for _, r := range rows {
					fmt.Fprintf(cmd.OutOrStdout(), "%-30s %-25s %-12s %s\n", r.Title, r.Author, r.Genre, r.Status)
				}
				return nil
			default:
				return fmt.Errorf("unknown search field %q (choose title, author, genre or any)", by)
			}
			return printBooks(cmd.OutOrStdout(), a, books, asJSON)
		},
	}
	cmd.Flags().StringVar(&by, "by", "title", "title, author, genre or any")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
