package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"library-catalog/library"
)

// manifestEntry is one book in the YAML manifest, e.g.
//
//	books.yaml: [{title: Dune, author: Frank Herbert, genre: Fiction, kind: printed, pages: 412}]
type manifestEntry struct {
	Title  string  `yaml:"title"`
	Author string  `yaml:"author"`
	Genre  string  `yaml:"genre"`
	Kind   string  `yaml:"kind"`
	Pages  int     `yaml:"pages"`
	SizeMB float64 `yaml:"size_mb"`
}

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var manifest, configPath string

	cmd := &cobra.Command{
		Use:   "import_books",
		Short: "Add the books listed in a YAML manifest to the catalog",
		Long: `Add the books listed in a YAML manifest to the catalog.

Books already in the catalog (same title and author) are skipped. The
catalog is saved once at the end and the SQLite mirror refreshed.

Example:
  import_books --manifest books.yaml --config library.yaml`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := library.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			entries, err := readManifest(manifest)
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}

			lvl, _ := cfg.Level()
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
			mgr, err := library.NewLibraryManager(cfg, library.WithLogger(logger))
			if err != nil {
				return err
			}
			defer mgr.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Importing %d book(s) from %s...\n", len(entries), manifest)
			return importBooks(cmd.OutOrStdout(), mgr, entries)
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "books.yaml", "YAML list of books to import")
	cmd.Flags().StringVar(&configPath, "config", "library.yaml", "Path to the YAML config file")
	return cmd
}

func importBooks(w io.Writer, mgr *library.LibraryManager, entries []manifestEntry) error {
	lib := mgr.Library()

	var batch []*library.Book
	errorCount := 0
	for _, e := range entries {
		fmt.Fprintf(w, "Importing: %s by %s... ", e.Title, e.Author)

		book, err := e.book()
		if err != nil {
			fmt.Fprintf(w, "ERROR - %v\n", err)
			errorCount++
			continue
		}
		inBatch := slices.ContainsFunc(batch, book.Equal)
		if existing, err := lib.FindBook(book.Title()); inBatch || (err == nil && existing.Equal(book)) {
			fmt.Fprintln(w, "SKIPPED (already in catalog)")
			continue
		}

		fmt.Fprintln(w, "OK")
		batch = append(batch, book)
	}

	if err := mgr.AddBooks(batch); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	fmt.Fprintf(w, "\nImport complete!\n")
	fmt.Fprintf(w, "Successfully imported: %d books\n", len(batch))
	fmt.Fprintf(w, "Errors: %d\n", errorCount)

	if len(batch) > 0 {
		today := lib.Today()
		fmt.Fprintln(w, "\nCatalog:")
		fmt.Fprintln(w, strings.Repeat("-", 85))
		for _, b := range lib.Books() {
			fmt.Fprintln(w, b.Describe(today))
		}
	}
	return nil
}

func readManifest(path string) ([]manifestEntry, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var entries []manifestEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (e manifestEntry) book() (*library.Book, error) {
	if strings.TrimSpace(e.Title) == "" {
		return nil, fmt.Errorf("missing title")
	}
	genre, err := library.ParseGenre(e.Genre)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(e.Kind) {
	case "printed", "":
		return library.NewPrintedBook(e.Title, e.Author, genre, e.Pages), nil
	case "ebook":
		return library.NewEBook(e.Title, e.Author, genre, e.SizeMB), nil
	case "base":
		return library.NewBook(e.Title, e.Author, genre), nil
	}
	return nil, fmt.Errorf("unknown kind %q", e.Kind)
}
