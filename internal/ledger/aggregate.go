package ledger

import (
	"math"
	"sort"

	"monetra/internal/core"
)

// Converter is the optional conversion capability aggregations accept. A nil
// converter or empty target currency means amounts pass through unconverted;
// aggregation never fails because no converter was supplied.
type Converter interface {
	Convert(amount float64, from, to string) float64
	BaseCurrency() string
}

// displayAmount applies the conversion policy: transactions carrying an
// original currency convert from their original amount; bare amounts are
// assumed denominated in the ledger's base currency.
func (l *Ledger) displayAmount(tx core.Transaction, conv Converter, target string) float64 {
	if conv == nil || target == "" {
		return tx.Amount
	}
	if tx.OriginalCurrency != "" && tx.OriginalAmount > 0 {
		return conv.Convert(tx.OriginalAmount, tx.OriginalCurrency, target)
	}
	return conv.Convert(tx.Amount, l.base, target)
}

// TotalIncome sums income transactions, converted to target when a converter
// is supplied.
func (l *Ledger) TotalIncome(conv Converter, target string) float64 {
	return l.sumByType(core.Income, conv, target)
}

// TotalExpense sums expense transactions, converted to target when a
// converter is supplied.
func (l *Ledger) TotalExpense(conv Converter, target string) float64 {
	return l.sumByType(core.Expense, conv, target)
}

// Balance is total income minus total expense.
func (l *Ledger) Balance(conv Converter, target string) float64 {
	return l.TotalIncome(conv, target) - l.TotalExpense(conv, target)
}

func (l *Ledger) sumByType(tt core.TransactionType, conv Converter, target string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, tx := range l.cache {
		if tx.Type != tt {
			continue
		}
		total += l.displayAmount(tx, conv, target)
	}
	return total
}

// CategorySummary groups expenses by category (empty category counts as
// "Other"), sorted by total descending; ties are broken by category name so
// the order is deterministic.
func (l *Ledger) CategorySummary(conv Converter, target string) []core.CategoryTotal {
	l.mu.RLock()
	totals := make(map[string]float64)
	for _, tx := range l.cache {
		if tx.Type != core.Expense {
			continue
		}
		category := tx.Category
		if category == "" {
			category = "Other"
		}
		totals[category] += l.displayAmount(tx, conv, target)
	}
	l.mu.RUnlock()

	summary := make([]core.CategoryTotal, 0, len(totals))
	for category, total := range totals {
		summary = append(summary, core.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Total != summary[j].Total {
			return summary[i].Total > summary[j].Total
		}
		return summary[i].Category < summary[j].Category
	})
	return summary
}

// WeeklyTrend sorts a copy of the cache ascending by date, buckets by
// calendar day, and emits one point per distinct day carrying the running
// signed balance up to and including that day. Cumulative, not per-day
// deltas: consumers wanting deltas diff consecutive points.
func (l *Ledger) WeeklyTrend(conv Converter, target string) []core.TrendPoint {
	txs := l.All()

	sort.SliceStable(txs, func(i, j int) bool {
		ti, erri := core.ParseDate(txs[i].Date)
		tj, errj := core.ParseDate(txs[j].Date)
		if erri != nil || errj != nil {
			return txs[i].Date < txs[j].Date
		}
		return ti.Before(tj)
	})

	var (
		points  []core.TrendPoint
		running float64
	)
	for _, tx := range txs {
		amt := l.displayAmount(tx, conv, target)
		if tx.Type == core.Income {
			running += amt
		} else {
			running -= amt
		}

		day := tx.Day()
		if n := len(points); n > 0 && points[n-1].Date == day {
			points[n-1].Balance = running
		} else {
			points = append(points, core.TrendPoint{Date: day, Balance: running})
		}
	}
	return points
}

// BuildReport assembles the snapshot handed to external report formatters:
// totals, net balance, the top five expense categories with their share of
// the total expense, and the full transaction list.
func (l *Ledger) BuildReport(period string, conv Converter, target string) core.Report {
	income := l.TotalIncome(conv, target)
	expense := l.TotalExpense(conv, target)

	currency := target
	if conv == nil || currency == "" {
		currency = l.base
	}

	summary := l.CategorySummary(conv, target)
	if len(summary) > 5 {
		summary = summary[:5]
	}
	top := make([]core.CategoryShare, 0, len(summary))
	for _, ct := range summary {
		var pct float64
		if expense > 0 {
			pct = math.Round(ct.Total / expense * 100)
		}
		top = append(top, core.CategoryShare{
			Category:   ct.Category,
			Amount:     ct.Total,
			Percentage: pct,
		})
	}

	return core.Report{
		Period:        period,
		TotalIncome:   income,
		TotalExpense:  expense,
		NetBalance:    income - expense,
		Currency:      currency,
		TopCategories: top,
		Transactions:  l.All(),
	}
}
