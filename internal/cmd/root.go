package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

// app carries what every subcommand needs. The manager is opened lazily in
// PersistentPreRunE so that --help works without touching the data files.
type app struct {
	configPath string
	mgr        *library.LibraryManager
	logOut     io.Writer
}

// NewRootCmd creates the root command for library-catalog.
func NewRootCmd() *cobra.Command {
	a := &app{logOut: os.Stderr}

	root := &cobra.Command{
		Use:   "library-catalog",
		Short: "Manage a small library's books, patrons and loans",
		Long: `Track books, patrons and checkout/return transactions.

Data lives in three pipe-delimited text files (Data/Books.txt,
Data/Patrons.txt, Data/Transactions.txt by default) and is saved after
every checkout and return.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "library.yaml", "Path to the YAML config file")

	root.AddCommand(newBooksCmd(a))
	root.AddCommand(newPatronsCmd(a))
	root.AddCommand(newCheckoutCmd(a))
	root.AddCommand(newReturnCmd(a))
	root.AddCommand(newTransactionsCmd(a))
	root.AddCommand(newOverdueCmd(a))
	root.AddCommand(newPopularCmd(a))
	root.AddCommand(newSaveCmd(a))

	return root
}

func (a *app) open() error {
	cfg, err := library.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	lvl, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(a.logOut, &slog.HandlerOptions{Level: lvl}))

	mgr, err := library.NewLibraryManager(cfg, library.WithLogger(logger))
	if err != nil {
		return err
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}
