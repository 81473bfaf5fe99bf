package expenses

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/currency"

	"github.com/smartexpense/smartexpense/internal/receipts"
	"github.com/smartexpense/smartexpense/internal/shared"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var currencySymbols = map[string]string{
	"₹":   "INR",
	"RS":  "INR",
	"RS.": "INR",
	"$":   "USD",
	"€":   "EUR",
	"£":   "GBP",
}

// ParseDate accepts RFC 3339 timestamps, zone-less ISO timestamps (read as
// UTC) and plain dates.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeCurrency maps common symbols and lower-case codes onto ISO 4217
// codes. It returns false for anything that is not a known currency.
func NormalizeCurrency(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", false
	}
	if mapped, ok := currencySymbols[code]; ok {
		code = mapped
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", false
	}
	return unit.String(), true
}

// EnrichmentFrom converts a parser response into an Enrichment. Values that
// cannot be interpreted are dropped.
func EnrichmentFrom(p receipts.Parsed) Enrichment {
	var e Enrichment
	if p.Amount != nil && *p.Amount > 0 && !math.IsInf(*p.Amount, 0) {
		amount := *p.Amount
		e.Amount = &amount
	}
	if p.SuggestedCategory != nil {
		e.Category = strings.TrimSpace(*p.SuggestedCategory)
	}
	if p.Merchant != nil {
		e.Merchant = strings.TrimSpace(*p.Merchant)
	}
	if p.Currency != nil {
		if code, ok := NormalizeCurrency(*p.Currency); ok {
			e.Currency = code
		}
	}
	if p.RawText != nil {
		e.RawText = *p.RawText
	}
	if p.Date != nil {
		if d, ok := ParseDate(*p.Date); ok {
			e.Date = &d
		}
	}
	return e
}

// Resolve merges client values, parser enrichment and defaults, in that
// order of precedence, field by field.
func Resolve(client CreateFields, enrichment Enrichment, ok bool, now time.Time) (Resolved, error) {
	if !ok {
		enrichment = Enrichment{}
	}
	verr := &shared.ValidationError{}

	var out Resolved

	clientAmount, hasAmount := parseClientAmount(client.Amount, verr)
	switch {
	case hasAmount:
		out.Amount = clientAmount
	case enrichment.Amount != nil && *enrichment.Amount > 0:
		out.Amount = *enrichment.Amount
	}

	out.Category = firstNonEmpty(client.Category, enrichment.Category, DefaultCategory)

	switch {
	case client.Description != "":
		if utf8.RuneCountInString(client.Description) > MaxDescriptionLength {
			verr.Add("description", "must be at most 500 characters")
		}
		out.Description = client.Description
	default:
		out.Description = truncateRunes(enrichment.RawText, MaxDescriptionLength)
	}

	out.Merchant = firstNonEmpty(client.Merchant, enrichment.Merchant, "")

	// Client currencies are stored as ISO 4217 codes so report totals never
	// mix "₹" and "INR" rows. Anything that does not map to a code is rejected.
	switch {
	case strings.TrimSpace(client.Currency) != "":
		code, valid := NormalizeCurrency(client.Currency)
		if !valid {
			verr.Add("currency", "must be an ISO 4217 currency code")
		}
		out.Currency = code
	case enrichment.Currency != "":
		out.Currency = enrichment.Currency
	default:
		out.Currency = DefaultCurrency
	}

	switch {
	case strings.TrimSpace(client.Date) != "":
		d, valid := ParseDate(client.Date)
		if !valid {
			verr.Add("date", "must be an ISO 8601 date")
		}
		out.Date = d
	case enrichment.Date != nil:
		out.Date = *enrichment.Date
	default:
		out.Date = now.UTC()
	}

	if err := verr.OrNil(); err != nil {
		return Resolved{}, err
	}
	return out, nil
}

// parseClientAmount treats unparseable, NaN and zero amounts as absent.
func parseClientAmount(raw string, verr *shared.ValidationError) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if errors.Is(err, strconv.ErrRange) && math.IsInf(v, 0) {
		verr.Add("amount", "must be a finite number")
		return 0, false
	}
	if err != nil || math.IsNaN(v) || v == 0 {
		return 0, false
	}
	if math.IsInf(v, 0) {
		verr.Add("amount", "must be a finite number")
		return 0, false
	}
	if v < 0 {
		verr.Add("amount", "must not be negative")
		return 0, false
	}
	return v, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
