// Package tui is a terminal front for the ledger, with the same screens as
// the web page.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"zombiefinance/internal/core"
	"zombiefinance/internal/ledger"
	"zombiefinance/internal/log"
)

const barWidth = 24

// App is the bubbletea model. Ledger actions run inside Update, so the
// store only ever sees one writer.
type App struct {
	ctx      context.Context
	store    *ledger.Store
	logger   *log.Logger
	currency string

	input  string
	cursor int // expense category
	status string
	err    bool
}

// New returns a model driving store. An empty currency uses the default.
func New(ctx context.Context, store *ledger.Store, currency string, logger *log.Logger) *App {
	if currency == "" {
		currency = core.DefaultCurrency
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &App{
		ctx:      ctx,
		store:    store,
		logger:   logger.WithComponent(log.ComponentTUI),
		currency: currency,
	}
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(ctx context.Context, app *App) error {
	_, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (a *App) Init() tea.Cmd { return nil }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	if m.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	if _, active := a.store.Session(); !active {
		return a.handleLoginKey(m)
	}
	switch a.store.Screen() {
	case core.ScreenAddIncome:
		return a.handleIncomeKey(m)
	case core.ScreenAddExpense:
		return a.handleExpenseKey(m)
	default:
		return a.handleHomeKey(m)
	}
}

func (a *App) handleLoginKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		return a, tea.Quit
	case tea.KeyEnter:
		ok, err := a.store.SwitchUser(a.ctx, a.input)
		a.report(ok, err, "enter a username", "")
		if ok {
			a.input = ""
		}
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		a.input = dropLast(a.input)
	case tea.KeySpace:
		a.input += " "
	case tea.KeyRunes:
		a.input += string(m.Runes)
	}
	return a, nil
}

func (a *App) handleHomeKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		return a, tea.Quit
	case "i":
		ok, err := a.store.Navigate(a.ctx, core.ScreenAddIncome)
		a.report(ok, err, "", "")
	case "e":
		ok, err := a.store.Navigate(a.ctx, core.ScreenAddExpense)
		a.report(ok, err, "", "")
	case "l":
		a.store.Logout()
		a.input, a.cursor = "", 0
		a.setStatus("logged out", false)
	}
	return a, nil
}

func (a *App) handleIncomeKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		ok, err := a.store.Back(a.ctx)
		a.report(ok, err, "", "")
		a.input = ""
	case tea.KeyEnter:
		amount, _ := core.ParseAmount(a.input)
		ok, err := a.store.AddIncome(a.ctx, amount)
		a.report(ok, err, "enter an amount greater than zero", "income saved")
		if ok {
			a.input = ""
		}
	default:
		a.editAmount(m)
	}
	return a, nil
}

func (a *App) handleExpenseKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	cats := core.Categories()
	switch m.Type {
	case tea.KeyEsc:
		ok, err := a.store.Back(a.ctx)
		a.report(ok, err, "", "")
		a.input = ""
	case tea.KeyUp, tea.KeyShiftTab:
		a.cursor = (a.cursor + len(cats) - 1) % len(cats)
	case tea.KeyDown, tea.KeyTab:
		a.cursor = (a.cursor + 1) % len(cats)
	case tea.KeyEnter:
		cat := cats[a.cursor]
		amount, _ := core.ParseAmount(a.input)
		ok, err := a.store.AddExpense(a.ctx, cat.ID, amount)
		a.report(ok, err, "enter an amount greater than zero", "expense added: "+cat.Name)
		if ok {
			a.input = ""
		}
	default:
		a.editAmount(m)
	}
	return a, nil
}

// editAmount accepts digits and one kind of decimal separator.
func (a *App) editAmount(m tea.KeyMsg) {
	switch m.Type {
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		a.input = dropLast(a.input)
	case tea.KeyRunes:
		for _, r := range m.Runes {
			if (r >= '0' && r <= '9') || r == '.' || r == ',' {
				a.input += string(r)
			}
		}
	}
}

// report turns a ledger result into the status line.
func (a *App) report(ok bool, err error, rejected, accepted string) {
	switch {
	case err != nil:
		a.logger.ErrorContext(a.ctx, "Ledger action failed", log.FieldError, err)
		a.setStatus("could not save: "+err.Error(), true)
	case !ok:
		a.setStatus(rejected, rejected != "")
	default:
		a.setStatus(accepted, false)
	}
}

func (a *App) setStatus(s string, isErr bool) {
	a.status, a.err = s, isErr
}

func dropLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

// ─── View ───────────────────────────────────────────────────────────────────

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22C55E"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 4).Align(lipgloss.Center)
)

var moodColors = map[string]lipgloss.Color{
	"green":  lipgloss.Color("#22C55E"),
	"cyan":   lipgloss.Color("#22D3EE"),
	"yellow": lipgloss.Color("#FACC15"),
	"red":    lipgloss.Color("#EF4444"),
}

func (a *App) View() string {
	var body string
	sess, active := a.store.Session()
	switch {
	case !active:
		body = a.renderLogin()
	case a.store.Screen() == core.ScreenAddIncome:
		body = a.renderIncome()
	case a.store.Screen() == core.ScreenAddExpense:
		body = a.renderExpense()
	default:
		body = a.renderHome(sess.Username)
	}
	if a.status != "" {
		style := okStyle
		if a.err {
			style = errorStyle
		}
		body += "\n\n" + style.Render(a.status)
	}
	return body + "\n"
}

func (a *App) renderLogin() string {
	return fmt.Sprintf("%s\n\n🧟\n\nUsername: %s█\n\n%s",
		titleStyle.Render("● ZOMBIE.FINANCE.EXE"),
		a.input,
		mutedStyle.Render("[enter] Login  [esc] Quit"))
}

func (a *App) renderHome(username string) string {
	sum := a.store.Summary()
	mood := sum.Mood()
	color := moodColors[mood.Color]

	var b strings.Builder
	b.WriteString(titleStyle.Render("● ZOMBIE.FINANCE.EXE") + "  " + mutedStyle.Render(username) + "\n\n")

	card := fmt.Sprintf("%s\n%s\n%s\n%s",
		mood.Zombie,
		lipgloss.NewStyle().Bold(true).Render(mood.Message),
		lipgloss.NewStyle().Foreground(color).Render(strings.ToUpper(mood.Subtext)),
		mood.Eyes)
	b.WriteString(cardStyle.BorderForeground(color).Render(card) + "\n\n")

	balance := core.FormatAmount(sum.Balance, a.currency)
	if sum.Balance < 0 {
		balance = errorStyle.Render(balance)
	}
	fmt.Fprintf(&b, "%s %s   %s %s   Saldo %s\n",
		okStyle.Render("Ingresos"), core.FormatAmount(sum.TotalIncome, a.currency),
		errorStyle.Render("Gastos"), core.FormatAmount(sum.TotalExpenses, a.currency),
		balance)

	if len(sum.ByCategory) > 0 {
		b.WriteString("\n")
		for _, c := range sum.ByCategory {
			n := int(c.Amount / sum.TotalExpenses * barWidth)
			bar := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render(strings.Repeat("█", n)) +
				mutedStyle.Render(strings.Repeat("░", barWidth-n))
			fmt.Fprintf(&b, "%s %-11s %s %s\n", c.Glyph, c.Name, bar, core.FormatAmount(c.Amount, a.currency))
		}
	}

	b.WriteString("\n" + mutedStyle.Render("[i] Agregar Ingreso  [e] Agregar Gasto  [l] Logout  [q] Quit"))
	return b.String()
}

func (a *App) renderIncome() string {
	return fmt.Sprintf("%s\n\nMonto en %s: %s█\n\n%s",
		titleStyle.Render("Agregar Ingreso"),
		a.currency,
		a.input,
		mutedStyle.Render("[enter] Guardar Ingreso  [esc] Volver"))
}

func (a *App) renderExpense() string {
	var b strings.Builder
	b.WriteString(errorStyle.Bold(true).Render("Agregar Gasto") + "\n\n")
	for i, c := range core.Categories() {
		line := fmt.Sprintf("%s %-11s", c.Glyph, c.Name)
		if i == a.cursor {
			line = cursorStyle.Render(line) + "  " + a.input + "█"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render("[↑/↓] Categoría  [enter] Agregar  [esc] Volver"))
	return b.String()
}
