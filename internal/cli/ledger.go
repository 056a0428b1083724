package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"zombiefinance/internal/core"
)

// ─── income / expense ───────────────────────────────────────────────────────

func newIncomeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "income USER AMOUNT",
		Short:   "Record an income for USER",
		Example: "  zombie income alice 500\n  zombie income alice 12,50",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[1])
			}
			return withUser(cmd.Context(), o, args[0], func(e *env) error {
				ok, err := e.ledger.AddIncome(cmd.Context(), amount)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("income rejected")
				}
				return printBalance(cmd.OutOrStdout(), e, "Added income "+core.FormatAmount(amount, e.cfg.CurrencySymbol))
			})
		},
	}
}

func newExpenseCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "expense USER CATEGORY AMOUNT",
		Short:   "Record an expense for USER",
		Example: "  zombie expense alice comida 120\n  zombie expense alice transport 30",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, ok := core.LookupCategory(args[1])
			if !ok {
				return unknownCategory(args[1])
			}
			amount, err := core.ParseAmount(args[2])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[2])
			}
			return withUser(cmd.Context(), o, args[0], func(e *env) error {
				ok, err := e.ledger.AddExpense(cmd.Context(), cat.ID, amount)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("expense rejected")
				}
				msg := fmt.Sprintf("Added %s expense %s", cat.Name, core.FormatAmount(amount, e.cfg.CurrencySymbol))
				return printBalance(cmd.OutOrStdout(), e, msg)
			})
		},
	}
}

func unknownCategory(input string) error {
	if s, ok := core.SuggestCategory(input); ok {
		return fmt.Errorf("%w %q (did you mean %q?)", core.ErrUnknownCategory, input, s.ID)
	}
	ids := make([]string, 0, 3)
	for _, c := range core.Categories() {
		ids = append(ids, c.ID)
	}
	return fmt.Errorf("%w %q (known: %s)", core.ErrUnknownCategory, input, strings.Join(ids, ", "))
}

// withUser opens storage, switches to username and runs fn.
func withUser(ctx context.Context, o *rootOptions, username string, fn func(*env) error) error {
	e, err := openEnv(ctx, o, os.Stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	ok, err := e.ledger.SwitchUser(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrEmptyUsername
	}
	return fn(e)
}

func printBalance(w io.Writer, e *env, headline string) error {
	sum := e.ledger.Summary()
	mood := sum.Mood()
	_, err := fmt.Fprintf(w, "%s\nBalance: %s  %s %s\n",
		headline, core.FormatAmount(sum.Balance, e.cfg.CurrencySymbol), mood.Zombie, mood.Message)
	return err
}

// ─── summary ────────────────────────────────────────────────────────────────

type summaryJSON struct {
	Username      string         `json:"username"`
	TotalIncome   float64        `json:"totalIncome"`
	TotalExpenses float64        `json:"totalExpenses"`
	Balance       float64        `json:"balance"`
	Tier          core.Tier      `json:"tier"`
	Message       string         `json:"message"`
	ByCategory    []categoryJSON `json:"byCategory"`
	Transactions  int            `json:"transactions"`
}

type categoryJSON struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

func newSummaryCmd(o *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary USER",
		Short: "Show totals, mood and category breakdown for USER",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), o, args[0], func(e *env) error {
				if asJSON {
					return writeSummaryJSON(cmd.OutOrStdout(), e)
				}
				return writeSummaryText(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeSummaryJSON(w io.Writer, e *env) error {
	sess, _ := e.ledger.Session()
	sum := e.ledger.Summary()
	mood := sum.Mood()
	out := summaryJSON{
		Username:      sess.Username,
		TotalIncome:   sum.TotalIncome,
		TotalExpenses: sum.TotalExpenses,
		Balance:       sum.Balance,
		Tier:          mood.Tier,
		Message:       mood.Message,
		ByCategory:    make([]categoryJSON, 0, len(sum.ByCategory)),
		Transactions:  len(e.ledger.Transactions()),
	}
	for _, c := range sum.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryJSON{ID: c.ID, Name: c.Name, Amount: c.Amount})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeSummaryText(w io.Writer, e *env) error {
	sess, _ := e.ledger.Session()
	sum := e.ledger.Summary()
	mood := sum.Mood()
	cur := e.cfg.CurrencySymbol

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "User\t%s\n", sess.Username)
	fmt.Fprintf(tw, "Ingresos\t%s\n", core.FormatAmount(sum.TotalIncome, cur))
	fmt.Fprintf(tw, "Gastos\t%s\n", core.FormatAmount(sum.TotalExpenses, cur))
	fmt.Fprintf(tw, "Saldo\t%s\n", core.FormatAmount(sum.Balance, cur))
	fmt.Fprintf(tw, "Mood\t%s %s (%s)\n", mood.Zombie, mood.Message, mood.Subtext)
	for _, c := range sum.ByCategory {
		fmt.Fprintf(tw, "  %s %s\t%s\n", c.Glyph, c.Name, core.FormatAmount(c.Amount, cur))
	}
	return tw.Flush()
}

// ─── categories / users ─────────────────────────────────────────────────────

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List expense categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, c := range core.Categories() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Glyph, c.ID, c.Name)
			}
			return tw.Flush()
		},
	}
}

func newUsersCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users with a stored ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, o, os.Stderr)
			if err != nil {
				return err
			}
			defer e.Close()

			prefix := e.cfg.StoragePrefix
			keys, err := e.backend.Backend.Keys(ctx, prefix)
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			users := make([]string, 0, len(keys))
			for _, k := range keys {
				users = append(users, strings.TrimPrefix(k, prefix))
			}
			sort.Strings(users)
			for _, u := range users {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
}
