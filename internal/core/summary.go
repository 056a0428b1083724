package core

// CategoryAmount is the expense total of one registry category.
type CategoryAmount struct {
	Category
	Amount float64
}

// Summary holds the derived totals of a transaction collection.
type Summary struct {
	TotalIncome   float64
	TotalExpenses float64
	Balance       float64
	ByCategory    []CategoryAmount
}

// Summarize recomputes every total from the full collection. There is no
// time-window filtering: the whole history counts.
func Summarize(txs []Transaction) Summary {
	var s Summary
	byCat := make(map[string]float64, len(categories))
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.TotalIncome += t.Amount
		case Expense:
			s.TotalExpenses += t.Amount
			byCat[t.Category] += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpenses

	for _, c := range categories {
		if total := byCat[c.ID]; total > 0 {
			s.ByCategory = append(s.ByCategory, CategoryAmount{Category: c, Amount: total})
		}
	}
	return s
}

// Mood classifies the summary's balance.
func (s Summary) Mood() Mood {
	return Classify(s.Balance)
}
