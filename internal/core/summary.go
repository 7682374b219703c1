package core

// Summary is the reduction of a transaction list into totals.
// Net is always Income - Expense, in cents.
type Summary struct {
	Income  Money
	Expense Money
	Net     Money
}

// Summarize reduces a sequence of transactions into income/expense/net
// totals. The empty sequence yields the zero Summary. The input is never
// mutated.
func Summarize(txs []Transaction) Summary {
	var income, expense int64
	for _, t := range txs {
		switch t.Kind {
		case Income:
			income += t.Amount.Cents
		case Expense:
			expense += t.Amount.Cents
		}
	}
	return Summary{
		Income:  Money{Cents: income},
		Expense: Money{Cents: expense},
		Net:     Money{Cents: income - expense},
	}
}
