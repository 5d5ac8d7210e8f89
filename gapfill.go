package divgap

import (
	"fmt"
	"time"
)

// GapFill is the result of analyzing one dividend against the price
// history of its ticker. The pointer fields are nil when no fill was found
// in the available data.
type GapFill struct {
	Symbol             string
	ExDate             time.Time
	RecordDate         time.Time
	CashAmount         float64
	ReferenceDate      time.Time
	ReferenceClose     float64
	DividendYield      float64
	FillDate           *time.Time
	TradingDaysToFill  *int
	CalendarDaysToFill *int
	AverageDailyYield  *float64
}

func (g *GapFill) Filled() bool {
	return g.FillDate != nil
}

func (g *GapFill) String() string {
	fill := "open"
	if g.FillDate != nil {
		fill = g.FillDate.Format(DateFormat)
	}
	return fmt.Sprintf("%s %s: %.2f%% %s",
		g.Symbol,
		g.ExDate.Format(DateFormat),
		g.DividendYield,
		fill,
	)
}
