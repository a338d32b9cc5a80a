package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <patron-id> <title>",
		Short: "Lend a book to a patron",
		Long: `Lend a book to a patron for 30 days.

The patron is asked for their PIN when one has been set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patronID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid patron ID: %s", args[0])
			}
			title := args[1]

			if err := authenticate(cmd, a, patronID); err != nil {
				return err
			}
			if err := a.mgr.CheckoutBook(patronID, title); err != nil {
				return err
			}

			b, _ := a.mgr.Library().FindBook(title)
			p, _ := a.mgr.Library().FindPatron(patronID)
			due, _ := b.DueDate()
			fmt.Fprintf(cmd.OutOrStdout(), "Book '%s' checked out to %s, due %s\n", b.Title(), p.Name(), due)
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <patron-id> <title>",
		Short: "Take a book back from a patron",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patronID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid patron ID: %s", args[0])
			}
			title := args[1]

			if err := authenticate(cmd, a, patronID); err != nil {
				return err
			}
			if err := a.mgr.ReturnBook(patronID, title); err != nil {
				return err
			}

			p, _ := a.mgr.Library().FindPatron(patronID)
			fmt.Fprintf(cmd.OutOrStdout(), "Book '%s' returned by %s\n", title, p.Name())
			return nil
		},
	}
}

// authenticate prompts for the patron's PIN when one is set.
func authenticate(cmd *cobra.Command, a *app, patronID int) error {
	required, err := a.mgr.HasPIN(patronID)
	if err != nil || !required {
		return err
	}
	pin, err := readPIN(cmd.OutOrStdout(), cmd.InOrStdin(), "Enter your PIN: ")
	if err != nil {
		return fmt.Errorf("failed to read PIN: %w", err)
	}
	return a.mgr.AuthenticatePatron(patronID, pin)
}

func newTransactionsCmd(a *app) *cobra.Command {
	var patronID int

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Show the checkout and return log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			txs := a.mgr.Library().Transactions()
			if len(txs) == 0 {
				fmt.Fprintln(w, "No transactions recorded.")
				return nil
			}
			for _, t := range txs {
				if patronID != 0 && t.PatronID() != patronID {
					continue
				}
				fmt.Fprintln(w, t.Describe())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&patronID, "patron", "p", 0, "Only this patron's transactions")
	return cmd
}

func newOverdueCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List checked-out books past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := a.mgr.Library()
			books := lib.OverdueBooks()
			if asJSON {
				return printBooks(cmd.OutOrStdout(), a, books, true)
			}

			w := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintln(w, "No overdue books.")
				return nil
			}
			today := lib.Today()
			for _, b := range books {
				fmt.Fprintf(w, "%s (%d day(s) overdue)\n", b.Describe(today), b.DaysOverdue(today))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newPopularCmd(a *app) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "Most borrowed titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := a.mgr.Popular(limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(w, counts)
			}
			if len(counts) == 0 {
				fmt.Fprintln(w, "No checkouts recorded.")
				return nil
			}
			fmt.Fprintf(w, "%-40s %s\n", "Title", "Checkouts")
			fmt.Fprintln(w, strings.Repeat("-", 50))
			for _, c := range counts {
				fmt.Fprintf(w, "%-40s %d\n", c.Title, c.Checkouts)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of titles to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Rewrite all data files from the loaded state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.SaveData(); err != nil {
				return err
			}
			paths := a.mgr.Library().Paths()
			fmt.Fprintf(cmd.OutOrStdout(), "All data saved to %s\n", strings.Join([]string{paths.Books, paths.Patrons, paths.Transactions}, ", "))
			return nil
		},
	}
}
