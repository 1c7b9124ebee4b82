package core

// CategoryTotal is an expense amount aggregated by category name.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// TrendPoint carries the cumulative signed balance up to and including a
// calendar day. Consumers wanting per-day deltas diff consecutive points.
type TrendPoint struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Balance float64 `json:"balance"`
}

// CategoryShare is a top-category line in a report, with its share of the
// total expense.
type CategoryShare struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Report is the snapshot shape handed to external report formatters.
// Serialization into JSON/CSV/PDF artifacts happens outside the ledger.
type Report struct {
	Period        string          `json:"period"`
	TotalIncome   float64         `json:"totalIncome"`
	TotalExpense  float64         `json:"totalExpense"`
	NetBalance    float64         `json:"netBalance"`
	Currency      string          `json:"currency"`
	TopCategories []CategoryShare `json:"topCategories"`
	Transactions  []Transaction   `json:"transactions"`
}
