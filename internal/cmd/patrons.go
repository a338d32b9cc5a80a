package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

func newPatronsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patrons",
		Short: "Register and inspect patrons",
	}
	cmd.AddCommand(newPatronsListCmd(a))
	cmd.AddCommand(newPatronsAddCmd(a))
	cmd.AddCommand(newPatronsShowCmd(a))
	cmd.AddCommand(newPatronsPINCmd(a))
	return cmd
}

func newPatronsListCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered patrons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patrons := a.mgr.Library().Patrons()
			w := cmd.OutOrStdout()

			if asJSON {
				type patronView struct {
					ID       int    `json:"id"`
					Name     string `json:"name"`
					Borrowed int    `json:"borrowed"`
				}
				views := make([]patronView, 0, len(patrons))
				for _, p := range patrons {
					views = append(views, patronView{ID: p.ID(), Name: p.Name(), Borrowed: len(p.Borrowed())})
				}
				return writeJSON(w, views)
			}

			if len(patrons) == 0 {
				fmt.Fprintln(w, "No patrons registered.")
				return nil
			}
			fmt.Fprintf(w, "%-5s %-30s %s\n", "ID", "Name", "Borrowed")
			fmt.Fprintln(w, strings.Repeat("-", 45))
			for _, p := range patrons {
				fmt.Fprintln(w, library.PrettyPatron(p))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newPatronsAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Register a patron under the next free ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("name cannot be empty")
			}
			p, err := a.mgr.RegisterPatron(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added patron '%s' with ID %d\n", p.Name(), p.ID())
			return nil
		},
	}
}

func newPatronsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a patron and the books they hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.mgr.LookupPatron(args[0])
			if err != nil {
				return err
			}
			lib := a.mgr.Library()
			books, err := lib.BorrowedBooks(p.ID())
			if err != nil {
				return err
			}
			today := lib.Today()

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Patron: %s (ID: %d)\n", p.Name(), p.ID())
			fmt.Fprintf(w, "Books Borrowed: %d\n", len(books))
			for i, b := range books {
				line := fmt.Sprintf("  %d. %s by %s", i+1, b.Title(), b.Author())
				if due, ok := b.DueDate(); ok {
					line += " (due " + due.String() + ")"
				}
				if b.IsOverdue(today) {
					line += fmt.Sprintf(" - OVERDUE by %d day(s)!", b.DaysOverdue(today))
				}
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}
}

func newPatronsPINCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <id>",
		Short: "Set the PIN a patron uses to authenticate checkouts and returns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid patron ID: %s", args[0])
			}
			p, err := a.mgr.Library().FindPatron(id)
			if err != nil {
				return err
			}
			pin, err := readPIN(cmd.OutOrStdout(), cmd.InOrStdin(), fmt.Sprintf("Enter new PIN for %s (ID: %d): ", p.Name(), id))
			if err != nil {
				return fmt.Errorf("failed to read PIN: %w", err)
			}
			if err := a.mgr.SetPatronPIN(id, pin); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PIN set for %s (ID: %d)\n", p.Name(), id)
			return nil
		},
	}
}
