package domain

import "github.com/shopspring/decimal"

// MonthTotals holds the projected income and expense for one month.
type MonthTotals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Forecast is a month-by-month projection of scheduled transactions for one
// calendar year. Months is indexed by time.Month - 1.
type Forecast struct {
	Year   int             `json:"year"`
	Months [12]MonthTotals `json:"months"`
}

// NewForecast returns a Forecast with every bucket at decimal zero.
func NewForecast(year int) *Forecast {
	f := &Forecast{Year: year}
	for i := range f.Months {
		f.Months[i] = MonthTotals{Income: decimal.Zero, Expense: decimal.Zero}
	}
	return f
}
