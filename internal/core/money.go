// Package core provides money parsing and handling utilities.
//
// This file contains functions for turning user typed amounts into decimals
// and for rendering decimals as localized currency strings.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/alfredxing/calc/compute"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places amounts are stored with.
const AmountPlaces = 2

// MaxAmount is the largest amount an entry may carry. Its cents fit in an
// int64 and it survives the float64 round trip of user input exactly.
var MaxAmount = decimal.New(99_999_999_999_999, -AmountPlaces)

// RoundAmount rounds f to two places, half away from zero.
//
// The float is first converted through its shortest decimal representation,
// so 3500.005 becomes 3500.01 rather than falling victim to binary error.
func RoundAmount(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(AmountPlaces)
}

// ParseAmount converts user input into a float.
//
// It accepts Czech formatting ("1 200,50", "1 200,50 Kč"), English grouping
// ("1,200.50") and simple arithmetic ("1200+300", "12*1500"). When both a
// comma and a dot appear, the later one is the decimal separator. Empty or
// unparsable input yields NaN, which the entry schema reports as a violation
// on the amount field.
func ParseAmount(s string) float64 {
	s = normalizeAmount(s)
	if s == "" {
		return math.NaN()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	f, err := compute.Evaluate(s)
	if err != nil {
		return math.NaN()
	}
	return f
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "Kč")

	var group rune
	if c, d := strings.LastIndex(s, ","), strings.LastIndex(s, "."); c >= 0 && d >= 0 {
		group = ','
		if c > d {
			group = '.'
		}
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t', group:
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)
	return s
}

// CurrencyFormatter renders amounts the way cs-CZ locales print CZK,
// e.g. "40 000,00 Kč" with non-breaking spaces.
type CurrencyFormatter struct {
	Symbol string
}

// DefaultFormatter formats Czech crowns.
var DefaultFormatter = CurrencyFormatter{Symbol: "Kč"}

const czechNumberFormat = "#\u00a0###,##"

// Format returns the display form of d. It never affects stored precision.
func (f CurrencyFormatter) Format(d decimal.Decimal) string {
	out := humanize.FormatFloat(czechNumberFormat, d.Round(AmountPlaces).InexactFloat64())
	if f.Symbol == "" {
		return out
	}
	return out + "\u00a0" + f.Symbol
}
