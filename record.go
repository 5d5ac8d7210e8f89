package divgap

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the validate tags of a boundary record.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

// DividendRecord is the JSON shape of a dividend, shared by the flat
// files and the reference dividends endpoint.
type DividendRecord struct {
	Ticker          string   `json:"ticker" validate:"required"`
	CashAmount      *float64 `json:"cash_amount" validate:"required,gte=0"`
	Currency        string   `json:"currency,omitempty"`
	DeclarationDate string   `json:"declaration_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DividendType    string   `json:"dividend_type,omitempty"`
	ExDividendDate  string   `json:"ex_dividend_date" validate:"required,datetime=2006-01-02"`
	Frequency       int      `json:"frequency" validate:"gte=0"`
	PayDate         string   `json:"pay_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	RecordDate      string   `json:"record_date" validate:"required,datetime=2006-01-02"`
}

func NewDividendRecord(d *Dividend) *DividendRecord {
	amount := d.CashAmount
	return &DividendRecord{
		Ticker:          d.Symbol,
		CashAmount:      &amount,
		Currency:        d.Currency,
		DeclarationDate: FormatDate(d.DeclarationDate),
		DividendType:    d.Type,
		ExDividendDate:  FormatDate(d.ExDate),
		Frequency:       d.Frequency,
		PayDate:         FormatDate(d.PayDate),
		RecordDate:      FormatDate(d.RecordDate),
	}
}

// Dividend validates the record and converts it.
func (r *DividendRecord) Dividend() (*Dividend, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}

	var err error
	d := &Dividend{
		Symbol:     r.Ticker,
		CashAmount: *r.CashAmount,
		Currency:   r.Currency,
		Frequency:  r.Frequency,
		Type:       r.DividendType,
	}
	if d.ExDate, err = ParseDate(r.ExDividendDate); err != nil {
		return nil, fmt.Errorf("ex_dividend_date: %w", err)
	}
	if d.RecordDate, err = ParseDate(r.RecordDate); err != nil {
		return nil, fmt.Errorf("record_date: %w", err)
	}
	if d.DeclarationDate, err = ParseDate(r.DeclarationDate); err != nil {
		return nil, fmt.Errorf("declaration_date: %w", err)
	}
	if d.PayDate, err = ParseDate(r.PayDate); err != nil {
		return nil, fmt.Errorf("pay_date: %w", err)
	}
	return d, nil
}

// PriceRecord is the JSON shape of a daily bar in the flat files.
// Timestamp is in epoch milliseconds.
type PriceRecord struct {
	Timestamp *int64   `json:"timestamp" validate:"required,gt=0"`
	Open      *float64 `json:"open" validate:"required,gte=0"`
	High      *float64 `json:"high" validate:"required,gte=0"`
	Low       *float64 `json:"low" validate:"required,gte=0"`
	Close     *float64 `json:"close" validate:"required,gte=0"`
	Volume    float64  `json:"volume,omitempty" validate:"gte=0"`
}

func NewPriceRecord(p *Price) *PriceRecord {
	ts := p.Timestamp.UnixMilli()
	open, high, low, cls := p.Open, p.High, p.Low, p.Close
	return &PriceRecord{
		Timestamp: &ts,
		Open:      &open,
		High:      &high,
		Low:       &low,
		Close:     &cls,
		Volume:    p.Volume,
	}
}

var ErrHighBelowLow = errors.New("high below low")

// Price validates the record and converts it. The bar's date is the
// calendar day of the timestamp in loc.
func (r *PriceRecord) Price(
	symbol string,
	loc *time.Location,
) (*Price, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}
	if *r.High < *r.Low {
		return nil, ErrHighBelowLow
	}

	ts := time.UnixMilli(*r.Timestamp).UTC()
	return &Price{
		Symbol:    symbol,
		Date:      DateIn(ts, loc),
		Timestamp: ts,
		Open:      *r.Open,
		High:      *r.High,
		Low:       *r.Low,
		Close:     *r.Close,
		Volume:    r.Volume,
	}, nil
}
