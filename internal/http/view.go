package http

import (
	"math"

	"zombiefinance/internal/core"
	"zombiefinance/internal/ledger"
)

// pageView feeds index.html. Screen is empty when nobody is logged in.
type pageView struct {
	Screen        core.Screen
	Username      string
	UsernameInput string
	Error         string
	Notice        string
	Currency      string

	Mood          core.Mood
	TotalIncome   string
	TotalExpenses string
	Balance       string
	Negative      bool
	Bars          []barView
	Categories    []core.Category
}

type barView struct {
	ID     string
	Name   string
	Glyph  string
	Color  string
	Amount string
	Width  int // share of total expenses, in percent
}

// buildPageView snapshots the store for rendering. Callers hold the server
// lock.
func buildPageView(store *ledger.Store, currency string) pageView {
	v := pageView{Currency: currency, Categories: core.Categories()}
	sess, ok := store.Session()
	if !ok {
		return v
	}

	sum := store.Summary()
	v.Screen = store.Screen()
	v.Username = sess.Username
	v.Mood = sum.Mood()
	v.TotalIncome = core.FormatAmount(sum.TotalIncome, currency)
	v.TotalExpenses = core.FormatAmount(sum.TotalExpenses, currency)
	v.Balance = core.FormatAmount(sum.Balance, currency)
	v.Negative = sum.Balance < 0
	v.Bars = buildBars(sum, currency)
	return v
}

func buildBars(sum core.Summary, currency string) []barView {
	bars := make([]barView, 0, len(sum.ByCategory))
	for _, c := range sum.ByCategory {
		width := 0
		if sum.TotalExpenses > 0 {
			width = int(math.Round(c.Amount / sum.TotalExpenses * 100))
		}
		bars = append(bars, barView{
			ID:     c.ID,
			Name:   c.Name,
			Glyph:  c.Glyph,
			Color:  c.Color,
			Amount: core.FormatAmount(c.Amount, currency),
			Width:  width,
		})
	}
	return bars
}

type moodResponse struct {
	Tier    core.Tier `json:"tier"`
	Message string    `json:"message"`
	Subtext string    `json:"subtext"`
	Color   string    `json:"color"`
}

type categoryTotal struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type summaryResponse struct {
	Username         string          `json:"username"`
	Screen           core.Screen     `json:"screen"`
	TotalIncome      float64         `json:"totalIncome"`
	TotalExpenses    float64         `json:"totalExpenses"`
	Balance          float64         `json:"balance"`
	Mood             moodResponse    `json:"mood"`
	ByCategory       []categoryTotal `json:"byCategory"`
	TransactionCount int             `json:"transactionCount"`
}

// buildSummaryResponse assumes an active session.
func buildSummaryResponse(store *ledger.Store) summaryResponse {
	sess, _ := store.Session()
	sum := store.Summary()
	mood := sum.Mood()

	resp := summaryResponse{
		Username:         sess.Username,
		Screen:           store.Screen(),
		TotalIncome:      sum.TotalIncome,
		TotalExpenses:    sum.TotalExpenses,
		Balance:          sum.Balance,
		Mood:             moodResponse{Tier: mood.Tier, Message: mood.Message, Subtext: mood.Subtext, Color: mood.Color},
		ByCategory:       make([]categoryTotal, 0, len(sum.ByCategory)),
		TransactionCount: len(store.Transactions()),
	}
	for _, c := range sum.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryTotal{ID: c.ID, Name: c.Name, Amount: c.Amount})
	}
	return resp
}
