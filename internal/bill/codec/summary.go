package codec

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Summary holds the amounts recovered from the human-readable half of a
// payload. Each token is scanned independently: an absent token leaves its
// amount at zero without blocking the others.
type Summary struct {
	Admission float64
	Stay      float64
	Services  float64
	Discount  float64
	Tax       float64
	Net       float64

	AdmissionFound bool
	StayFound      bool
	ServicesFound  bool
	DiscountFound  bool
	TaxFound       bool
	NetFound       bool
}

// AnyCategory reports whether at least one category total was recovered.
func (s Summary) AnyCategory() bool {
	return s.AdmissionFound || s.StayFound || s.ServicesFound
}

// Token regexes accept the rupee sign as well as the Rs/INR spellings that
// older records used, and tolerate thousands separators.
var (
	admissionRe = summaryRe(`admission(?:\s*fee)?`)
	stayRe      = summaryRe(`(?:room\s*)?stay(?:\s*charges)?`)
	servicesRe  = summaryRe(`services?(?:\s*charges)?`)
	discountRe  = summaryRe(`discount`)
	taxRe       = summaryRe(`tax`)
	netRe       = summaryRe(`net(?:\s*(?:payable|amount|total))?`)
)

// The leading \b keeps short labels from matching inside longer words in
// legacy notes, such as "Cabinet:" scanning as a net token.
func summaryRe(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + label + `\s*:\s*(?:₹|rs\.?|inr)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
}

// ScanSummary scans all summary tokens of a payload.
func ScanSummary(payload string) Summary {
	var s Summary
	s.Admission, s.AdmissionFound = scanAmount(admissionRe, payload)
	s.Stay, s.StayFound = scanAmount(stayRe, payload)
	s.Services, s.ServicesFound = scanAmount(servicesRe, payload)
	s.Discount, s.DiscountFound = scanAmount(discountRe, payload)
	s.Tax, s.TaxFound = scanAmount(taxRe, payload)
	s.Net, s.NetFound = scanAmount(netRe, payload)
	return s
}

func scanAmount(re *regexp.Regexp, payload string) (float64, bool) {
	m := re.FindStringSubmatch(payload)
	if m == nil {
		return 0, false
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
