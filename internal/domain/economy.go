package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SavingsRate is the share of the monthly bill a customer saves.
var SavingsRate = decimal.RequireFromString("0.15")

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// Economy is the projected savings for a given bill.
type Economy struct {
	Monthly decimal.Decimal `json:"monthly_economy"`
	Yearly  decimal.Decimal `json:"yearly_economy"`
}

// Simulate projects monthly and yearly savings for a monthly bill. It does
// not validate the sign; callers reject non-positive bills first.
func Simulate(bill decimal.Decimal) Economy {
	monthly := bill.Mul(SavingsRate)
	return Economy{
		Monthly: monthly,
		Yearly:  monthly.Mul(twelve),
	}
}

// Commission returns bill × rate / 100. Division by 100 is exact in decimal.
func Commission(bill, rate decimal.Decimal) decimal.Decimal {
	return bill.Mul(rate).Div(hundred)
}

type equivalentBucket struct {
	low   decimal.Decimal
	label string
}

// funBuckets are half-open [low, next.low) ranges in ascending order; the
// last one is unbounded.
var funBuckets = []equivalentBucket{
	{decimal.NewFromInt(0), "Um jantar romântico por mês"},
	{decimal.NewFromInt(200), "Uma viagem de fim de semana"},
	{decimal.NewFromInt(500), "Um smartphone novo por ano"},
	{decimal.NewFromInt(1000), `Uma TV 4K de 55" por ano`},
	{decimal.NewFromInt(2000), "Uma moto usada por ano"},
	{decimal.NewFromInt(5000), "Um carro popular por ano"},
}

// FunEquivalent maps a yearly saving to a human-readable equivalent.
// Negative values fall into the first bucket.
func FunEquivalent(yearly decimal.Decimal) string {
	label := funBuckets[0].label
	for _, b := range funBuckets {
		if yearly.LessThan(b.low) {
			break
		}
		label = b.label
	}
	return label
}

// TeaserEquivalent is the playful counter shown on the public landing
// simulator ("N pizzas grandes!").
func TeaserEquivalent(yearly decimal.Decimal) string {
	count := func(per int64) int64 {
		return yearly.Div(decimal.NewFromInt(per)).Floor().IntPart()
	}
	switch {
	case yearly.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		return fmt.Sprintf("%d meses de streaming premium!", count(300))
	case yearly.GreaterThanOrEqual(decimal.NewFromInt(600)):
		return fmt.Sprintf("%d jantares românticos!", count(100))
	case yearly.GreaterThanOrEqual(decimal.NewFromInt(300)):
		return fmt.Sprintf("%d pizzas grandes!", count(50))
	default:
		return fmt.Sprintf("%d cafés especiais!", count(25))
	}
}

// ParseBillValue parses a bill amount typed by a visitor. Both "1234.56" and
// the Brazilian "R$ 1.234,56" notations are accepted. The result must be
// strictly positive.
func ParseBillValue(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "R$")
	v = strings.ReplaceAll(v, " ", "")
	if v == "" {
		return decimal.Zero, &ErrValidation{Field: "bill_value", Message: "valor da conta é obrigatório"}
	}

	lastComma := strings.LastIndex(v, ",")
	lastDot := strings.LastIndex(v, ".")
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	case lastDot > lastComma && lastComma >= 0:
		v = strings.ReplaceAll(v, ",", "")
	case lastDot >= 0 && strings.Count(v, ".") > 1:
		// "1.234.567" is a thousands-grouped integer
		v = strings.ReplaceAll(v, ".", "")
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, &ErrValidation{Field: "bill_value", Message: "valor da conta inválido"}
	}
	if !d.IsPositive() {
		return decimal.Zero, &ErrValidation{Field: "bill_value", Message: "valor da conta deve ser maior que zero"}
	}
	return d, nil
}
