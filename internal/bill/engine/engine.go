// Package engine computes bill totals from structured charge inputs.
// Every function is pure and total: numeric garbage degrades to zero with
// an anomaly surfaced to the caller for logging, never an error.
package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/sevacare/ipdbilling/internal/bill/domain"
)

// Anomaly flags a numeric coercion failure on one line item. The row
// contributes zero instead of poisoning the total.
type Anomaly struct {
	Label  string `json:"label"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s.%s: %s", a.Label, a.Field, a.Reason)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02-01-2006", "02/01/2006"}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StayDays returns the chargeable day count for a stay period: absolute
// day difference, ceiling, floor of one. Unparseable dates fail soft to 1.
func StayDays(start, end string) int {
	from, ok := parseDate(start)
	if !ok {
		return 1
	}
	to, ok := parseDate(end)
	if !ok {
		return 1
	}
	days := int(math.Ceil(math.Abs(to.Sub(from).Hours()) / 24))
	if days < 1 {
		return 1
	}
	return days
}

// sanitize clamps NaN, infinite, and negative rates to zero.
func sanitize(v float64, label, field string, anomalies *[]Anomaly) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		*anomalies = append(*anomalies, Anomaly{Label: label, Field: field, Reason: "non-finite amount clamped to 0"})
		return 0
	}
	if v < 0 {
		*anomalies = append(*anomalies, Anomaly{Label: label, Field: field, Reason: "negative amount clamped to 0"})
		return 0
	}
	return v
}

// StaySegmentTotal computes (bed+nursing+rmo+doctor) x days for one segment.
func StaySegmentTotal(seg domain.StaySegment) (float64, []Anomaly) {
	var anomalies []Anomaly
	label := stayLabel(seg)
	rate := sanitize(seg.BedRate, label, "bed_rate", &anomalies) +
		sanitize(seg.NursingRate, label, "nursing_rate", &anomalies) +
		sanitize(seg.RMORate, label, "rmo_rate", &anomalies) +
		sanitize(seg.DoctorRate, label, "doctor_rate", &anomalies)
	return rate * float64(StayDays(seg.StartDate, seg.EndDate)), anomalies
}

// ServiceTotal computes unit price x quantity with a quantity floor of one.
func ServiceTotal(svc domain.ServiceCharge) (float64, []Anomaly) {
	var anomalies []Anomaly
	price := sanitize(svc.UnitPrice, svc.Name, "unit_price", &anomalies)
	qty := sanitize(svc.Quantity, svc.Name, "quantity", &anomalies)
	return price * math.Max(1, qty), anomalies
}

// GrossTotal is the admission fee plus all stay and service totals.
func GrossTotal(sheet domain.ChargeSheet) (float64, []Anomaly) {
	var anomalies []Anomaly
	gross := sanitize(sheet.AdmissionFee, "admission", "admission_fee", &anomalies)
	for _, seg := range sheet.Stays {
		total, segAnomalies := StaySegmentTotal(seg)
		anomalies = append(anomalies, segAnomalies...)
		gross += total
	}
	for _, svc := range sheet.Services {
		total, svcAnomalies := ServiceTotal(svc)
		anomalies = append(anomalies, svcAnomalies...)
		gross += total
	}
	return gross, anomalies
}

// NetTotal applies discount and tax to the gross, clamped at zero.
func NetTotal(gross, discount, tax float64) float64 {
	return math.Max(0, gross-discount+tax)
}

// Balance is net minus deposits paid. Negative means a refund is owed.
func Balance(net, depositsSum float64) float64 {
	return net - depositsSum
}

func stayLabel(seg domain.StaySegment) string {
	days := StayDays(seg.StartDate, seg.EndDate)
	noun := "days"
	if days == 1 {
		noun = "day"
	}
	return fmt.Sprintf("%s - Room Stay (%d %s)", RoomTypeLabel(seg.RoomType), days, noun)
}

// RoomTypeLabel renders the display name for a room type.
func RoomTypeLabel(rt domain.RoomType) string {
	switch rt {
	case domain.RoomGeneralWard:
		return "General Ward"
	case domain.RoomSemiPrivate:
		return "Semi Private"
	case domain.RoomPrivate:
		return "Private"
	case domain.RoomDeluxe:
		return "Deluxe"
	case domain.RoomICU:
		return "ICU"
	case domain.RoomICCU:
		return "ICCU"
	case domain.RoomNICU:
		return "NICU"
	default:
		return string(rt)
	}
}

// Compute turns a charge sheet into a fully computed snapshot. The snapshot
// carries an admission line item alongside the AdmissionFee field so the
// encoded payload can restore the full bill on a later edit.
func Compute(sheet domain.ChargeSheet) (domain.BillSnapshot, []Anomaly) {
	var anomalies []Anomaly

	admission := sanitize(sheet.AdmissionFee, "admission", "admission_fee", &anomalies)
	discount := sanitize(sheet.Discount, "discount", "discount", &anomalies)
	tax := sanitize(sheet.Tax, "tax", "tax", &anomalies)

	items := make([]domain.ChargeLineItem, 0, len(sheet.Stays)+len(sheet.Services)+1)
	if admission != 0 {
		items = append(items, domain.ChargeLineItem{
			Category: domain.CategoryAdmission,
			Label:    "Admission Fee",
			Quantity: 1,
			UnitRate: admission,
			Total:    admission,
		})
	}

	gross := admission
	for _, seg := range sheet.Stays {
		total, segAnomalies := StaySegmentTotal(seg)
		anomalies = append(anomalies, segAnomalies...)
		days := StayDays(seg.StartDate, seg.EndDate)
		perDay := total / float64(days)
		items = append(items, domain.ChargeLineItem{
			Category: domain.CategoryStay,
			Label:    stayLabel(seg),
			Quantity: float64(days),
			UnitRate: perDay,
			Total:    total,
			Stay: &domain.StayBreakdown{
				RoomType:    seg.RoomType,
				StartDate:   seg.StartDate,
				EndDate:     seg.EndDate,
				Days:        days,
				BedRate:     zeroIfInvalid(seg.BedRate),
				NursingRate: zeroIfInvalid(seg.NursingRate),
				RMORate:     zeroIfInvalid(seg.RMORate),
				DoctorRate:  zeroIfInvalid(seg.DoctorRate),
			},
		})
		gross += total
	}
	for _, svc := range sheet.Services {
		total, svcAnomalies := ServiceTotal(svc)
		anomalies = append(anomalies, svcAnomalies...)
		qty := math.Max(1, zeroIfInvalid(svc.Quantity))
		items = append(items, domain.ChargeLineItem{
			Category: domain.CategoryService,
			Label:    svc.Name,
			Quantity: qty,
			UnitRate: zeroIfInvalid(svc.UnitPrice),
			Total:    total,
		})
		gross += total
	}

	net := NetTotal(gross, discount, tax)

	return domain.BillSnapshot{
		PatientRef:   sheet.PatientRef,
		BillingDate:  sheet.BillingDate,
		LineItems:    items,
		AdmissionFee: admission,
		Discount:     discount,
		Tax:          tax,
		Gross:        gross,
		Net:          net,
		Balance:      net,
		PaymentMode:  sheet.PaymentMode,
		Status:       domain.BillStatusPending,
	}, anomalies
}

// ChargesFromItems rebuilds an editable charge sheet from decoded or
// reconstructed line items. It is the inverse of Compute for any snapshot
// the codec produced.
func ChargesFromItems(snapshot domain.BillSnapshot) domain.ChargeSheet {
	sheet := domain.ChargeSheet{
		PatientRef:  snapshot.PatientRef,
		BillingDate: snapshot.BillingDate,
		Discount:    snapshot.Discount,
		Tax:         snapshot.Tax,
		PaymentMode: snapshot.PaymentMode,
	}
	for _, item := range snapshot.LineItems {
		switch item.Category {
		case domain.CategoryAdmission:
			sheet.AdmissionFee += item.Total
		case domain.CategoryStay:
			if item.Stay != nil {
				sheet.Stays = append(sheet.Stays, domain.StaySegment{
					RoomType:    item.Stay.RoomType,
					StartDate:   item.Stay.StartDate,
					EndDate:     item.Stay.EndDate,
					BedRate:     item.Stay.BedRate,
					NursingRate: item.Stay.NursingRate,
					RMORate:     item.Stay.RMORate,
					DoctorRate:  item.Stay.DoctorRate,
				})
			} else {
				// No breakdown survived; carry the row as a flat service
				// so the amount is not lost on recompute.
				sheet.Services = append(sheet.Services, domain.ServiceCharge{
					Name:      item.Label,
					Quantity:  1,
					UnitPrice: item.Total,
				})
			}
		case domain.CategoryService:
			sheet.Services = append(sheet.Services, domain.ServiceCharge{
				Name:      item.Label,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitRate,
			})
		}
	}
	return sheet
}

func zeroIfInvalid(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
