// Package reconstruct recovers a structured bill from payloads that predate
// the machine-readable line-item section, or whose section is corrupted.
// It is a best-effort token scanner: it never fails, and in the worst case
// returns a single opaque line that ties to the record's stored amount.
package reconstruct

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sevacare/ipdbilling/internal/bill/codec"
	"github.com/sevacare/ipdbilling/internal/bill/domain"
	"github.com/sevacare/ipdbilling/internal/bill/engine"
	"github.com/sevacare/ipdbilling/internal/roomrates"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// canonicalTolerance is the relative band within which a recovered per-day
// rate is considered to match the canonical tariff for its room type.
const canonicalTolerance = 0.01

var daysRe = regexp.MustCompile(`(?i)\(?\s*([0-9]+)\s*days?\s*\)?`)

// roomVocabulary maps normalized label fragments to canonical room types.
// Longer fragments are matched first so "nicu" never reads as "icu".
var roomVocabulary = []struct {
	fragment string
	roomType domain.RoomType
}{
	{"intensive cardiac care unit", domain.RoomICCU},
	{"neonatal intensive care unit", domain.RoomNICU},
	{"intensive care unit", domain.RoomICU},
	{"neonatal icu", domain.RoomNICU},
	{"cardiac icu", domain.RoomICCU},
	{"general ward", domain.RoomGeneralWard},
	{"semi private", domain.RoomSemiPrivate},
	{"twin sharing", domain.RoomSemiPrivate},
	{"single room", domain.RoomPrivate},
	{"deluxe", domain.RoomDeluxe},
	{"suite", domain.RoomDeluxe},
	{"nicu", domain.RoomNICU},
	{"iccu", domain.RoomICCU},
	{"icu", domain.RoomICU},
	{"private", domain.RoomPrivate},
	{"ward", domain.RoomGeneralWard},
}

type Params struct {
	fx.In

	Rates *roomrates.Holder
	Log   *zap.Logger
}

// Reconstructor infers structured bills from legacy payloads.
type Reconstructor struct {
	rates *roomrates.Holder
	log   *zap.Logger

	// TrustStoredAmount back-fills the admission fee so category totals
	// tie to the store's authoritative amount when no admission token was
	// recovered. With it off, the recovered category values win even when
	// they disagree with the stored amount.
	TrustStoredAmount bool
}

func New(p Params) *Reconstructor {
	return &Reconstructor{
		rates:             p.Rates,
		log:               p.Log.Named("bill.reconstruct"),
		TrustStoredAmount: true,
	}
}

// Input carries everything the store knows about a legacy record.
type Input struct {
	Payload      string
	StoredAmount float64
	PatientRef   string
	RecordDate   time.Time
	PaymentMode  string
	Status       domain.BillStatus
}

// Reconstruct recovers a best-effort snapshot. Summary tokens are scanned
// independently; any absent token contributes zero without blocking the
// others. When no token matches at all, one opaque treatment-charge line
// equal to the stored amount keeps the bill internally consistent.
func (r *Reconstructor) Reconstruct(in Input) domain.BillSnapshot {
	summary := codec.ScanSummary(in.Payload)

	sheet := domain.ChargeSheet{
		PatientRef:  in.PatientRef,
		BillingDate: dateLabel(in.RecordDate),
		PaymentMode: in.PaymentMode,
	}

	if !summary.AnyCategory() {
		// Nothing recoverable: one opaque line balancing to the stored
		// amount.
		snapshot := domain.BillSnapshot{
			PatientRef:  in.PatientRef,
			BillingDate: sheet.BillingDate,
			PaymentMode: in.PaymentMode,
			Status:      in.Status,
			LineItems: []domain.ChargeLineItem{{
				Category: domain.CategoryService,
				Label:    "Treatment Charges",
				Quantity: 1,
				UnitRate: in.StoredAmount,
				Total:    in.StoredAmount,
			}},
			Gross:   in.StoredAmount,
			Net:     in.StoredAmount,
			Balance: in.StoredAmount,
		}
		r.log.Debug("no category tokens recovered, synthesized opaque bill",
			zap.String("patient_ref", in.PatientRef),
			zap.Float64("amount", in.StoredAmount))
		return snapshot
	}

	sheet.AdmissionFee = summary.Admission
	sheet.Discount = summary.Discount
	sheet.Tax = summary.Tax

	if summary.StayFound && summary.Stay > 0 {
		sheet.Stays = append(sheet.Stays, r.staySegment(in, summary.Stay))
	}
	if summary.ServicesFound && summary.Services > 0 {
		// Unit-level detail is unrecoverable from summary tokens; one
		// aggregate row stands in for all services.
		sheet.Services = append(sheet.Services, domain.ServiceCharge{
			Name:      "Hospital Services",
			Quantity:  1,
			UnitPrice: summary.Services,
		})
	}

	snapshot, _ := engine.Compute(sheet)
	snapshot.Status = in.Status

	if r.TrustStoredAmount && !summary.AdmissionFound && in.StoredAmount > 0 {
		if diff := in.StoredAmount - snapshot.Net; diff > 0.005 {
			sheet.AdmissionFee = diff
			snapshot, _ = engine.Compute(sheet)
			snapshot.Status = in.Status
			r.log.Debug("back-filled admission fee from stored amount",
				zap.String("patient_ref", in.PatientRef),
				zap.Float64("admission_fee", diff))
		}
	}

	return snapshot
}

// staySegment synthesizes a single aggregate stay segment from the
// recovered stay total, inferring room type and day count from the payload
// text and splitting the per-day rate into canonical components.
func (r *Reconstructor) staySegment(in Input, stayTotal float64) domain.StaySegment {
	days := scanDays(in.Payload)
	roomType := InferRoomType(in.Payload)
	perDay := stayTotal / float64(days)

	end := in.RecordDate
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := end.AddDate(0, 0, -days)

	rates := r.splitPerDayRate(roomType, perDay)
	return domain.StaySegment{
		RoomType:    roomType,
		StartDate:   dateLabel(start),
		EndDate:     dateLabel(end),
		BedRate:     rates.Bed,
		NursingRate: rates.Nursing,
		RMORate:     rates.RMO,
		DoctorRate:  rates.Doctor,
	}
}

// splitPerDayRate uses the canonical component split when the recovered
// rate is close to the canonical sum, otherwise scales every component so
// the four still add up to the recovered rate.
func (r *Reconstructor) splitPerDayRate(roomType domain.RoomType, perDay float64) roomrates.Rates {
	canonical := r.rates.For(roomType)
	sum := canonical.Sum()
	if sum <= 0 {
		return roomrates.Rates{Bed: perDay}
	}
	if math.Abs(perDay-sum) <= canonicalTolerance*sum {
		return canonical
	}
	scale := perDay / sum
	return roomrates.Rates{
		Bed:     canonical.Bed * scale,
		Nursing: canonical.Nursing * scale,
		RMO:     canonical.RMO * scale,
		Doctor:  canonical.Doctor * scale,
	}
}

// InferRoomType matches label text against the room vocabulary, handling
// case, spacing and singular/plural variants. Unmatched text defaults to
// the general ward.
func InferRoomType(text string) domain.RoomType {
	normalized := normalize(text)
	for _, entry := range roomVocabulary {
		if strings.Contains(normalized, entry.fragment) {
			return entry.roomType
		}
	}
	return domain.RoomGeneralWard
}

func normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	words := strings.Fields(b.String())
	for i, w := range words {
		// crude singularization: "wards" -> "ward"
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			words[i] = strings.TrimSuffix(w, "s")
		}
	}
	return strings.Join(words, " ")
}

func scanDays(payload string) int {
	m := daysRe.FindStringSubmatch(payload)
	if m == nil {
		return 1
	}
	days, err := strconv.Atoi(m[1])
	if err != nil || days < 1 {
		return 1
	}
	return days
}

func dateLabel(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Module provides the reconstructor.
var Module = fx.Module("bill.reconstruct",
	fx.Provide(New),
)
