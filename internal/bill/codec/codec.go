// Package codec packs a computed bill into the ledger store's single
// free-text field and unpacks it again on edit.
//
// Payload grammar:
//
//	Admission: ₹<n> | Stay: ₹<n> | Services: ₹<n> | Discount: ₹<n> | Tax: ₹<n> | Net: ₹<n> #LI#[ ...line items... ]
//
// The summary half is for humans (and for the legacy reconstructor); the
// half after the marker is the machine-readable source of truth. Consumers
// must tolerate a missing marker, a truncated array, and trailing text the
// store appends after the array.
package codec

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sevacare/ipdbilling/internal/bill/domain"
)

const (
	// Marker separates the human summary from the line-item array.
	Marker = "#LI#"
	// Delimiter joins the summary tokens.
	Delimiter = " | "
	// Rupee prefixes every summary amount.
	Rupee = "₹"
)

// Encode renders the free-text payload for a computed snapshot.
func Encode(snapshot domain.BillSnapshot) string {
	var stayTotal, serviceTotal float64
	for _, item := range snapshot.LineItems {
		switch item.Category {
		case domain.CategoryStay:
			stayTotal += item.Total
		case domain.CategoryService:
			serviceTotal += item.Total
		}
	}

	tokens := []string{
		"Admission: " + Rupee + FormatAmount(snapshot.AdmissionFee),
		"Stay: " + Rupee + FormatAmount(stayTotal),
		"Services: " + Rupee + FormatAmount(serviceTotal),
		"Discount: " + Rupee + FormatAmount(snapshot.Discount),
		"Tax: " + Rupee + FormatAmount(snapshot.Tax),
		"Net: " + Rupee + FormatAmount(snapshot.Net),
	}

	items, err := json.Marshal(snapshot.LineItems)
	if err != nil {
		// Line items are plain values; marshalling cannot realistically
		// fail, but a summary-only payload still decodes via the
		// reconstructor.
		return strings.Join(tokens, Delimiter)
	}

	return strings.Join(tokens, Delimiter) + " " + Marker + string(items)
}

// Decode extracts the line-item array from a payload. It returns nil when
// the marker is absent or the array cannot be parsed; that is the signal
// for the legacy reconstructor to run. Decode never fails.
func Decode(payload string) []domain.ChargeLineItem {
	idx := strings.Index(payload, Marker)
	if idx < 0 {
		return nil
	}
	rest := payload[idx+len(Marker):]

	open := strings.Index(rest, "[")
	if open < 0 {
		return nil
	}

	raw, ok := extractArray(rest[open:])
	if !ok {
		return nil
	}

	var items []domain.ChargeLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// extractArray returns the substring up to the bracket matching the leading
// '[', ignoring brackets inside JSON strings. Trailing unrelated text after
// the array is tolerated by construction.
func extractArray(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// FormatAmount renders an amount without trailing zero noise, exactly
// enough digits to round-trip the float.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
