// Package domain contains the charge model for in-patient bills.
package domain

import (
	"github.com/bwmarrin/snowflake"
)

// ChargeCategory tags a billable row.
type ChargeCategory string

const (
	CategoryAdmission ChargeCategory = "admission"
	CategoryStay      ChargeCategory = "stay"
	CategoryService   ChargeCategory = "service"
)

// RoomType identifies a ward class with a canonical per-day tariff.
type RoomType string

const (
	RoomGeneralWard RoomType = "general_ward"
	RoomSemiPrivate RoomType = "semi_private"
	RoomPrivate     RoomType = "private"
	RoomDeluxe      RoomType = "deluxe"
	RoomICU         RoomType = "icu"
	RoomICCU        RoomType = "iccu"
	RoomNICU        RoomType = "nicu"
)

// StayBreakdown carries the per-day rate components of a stay row. It is
// serialized into the bill payload so a later edit can restore the exact
// segment instead of guessing from the aggregate total.
type StayBreakdown struct {
	RoomType    RoomType `json:"room_type"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Days        int      `json:"days"`
	BedRate     float64  `json:"bed_rate"`
	NursingRate float64  `json:"nursing_rate"`
	RMORate     float64  `json:"rmo_rate"`
	DoctorRate  float64  `json:"doctor_rate"`
}

// PerDayRate is the sum of the four per-day components.
func (b StayBreakdown) PerDayRate() float64 {
	return b.BedRate + b.NursingRate + b.RMORate + b.DoctorRate
}

// ChargeLineItem is one billable row on a bill. Stay is set only for
// CategoryStay rows.
type ChargeLineItem struct {
	Category ChargeCategory `json:"category"`
	Label    string         `json:"label"`
	Quantity float64        `json:"quantity"`
	UnitRate float64        `json:"unit_rate"`
	Total    float64        `json:"total"`
	Stay     *StayBreakdown `json:"stay,omitempty"`
}

// StaySegment is a contiguous room-stay period in the charge input.
// Dates are YYYY-MM-DD; unparseable dates degrade to a one-day stay.
type StaySegment struct {
	RoomType    RoomType `json:"room_type"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	BedRate     float64  `json:"bed_rate"`
	NursingRate float64  `json:"nursing_rate"`
	RMORate     float64  `json:"rmo_rate"`
	DoctorRate  float64  `json:"doctor_rate"`
}

// ServiceCharge is an ad-hoc billable service in the charge input.
type ServiceCharge struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ChargeSheet is the structured input a bill is computed from.
type ChargeSheet struct {
	PatientRef   string          `json:"patient_ref"`
	BillingDate  string          `json:"billing_date"`
	AdmissionFee float64         `json:"admission_fee"`
	Stays        []StaySegment   `json:"stays"`
	Services     []ServiceCharge `json:"services"`
	Discount     float64         `json:"discount"`
	Tax          float64         `json:"tax"`
	PaymentMode  string          `json:"payment_mode"`
}

// BillStatus is the lifecycle state of a persisted bill.
type BillStatus string

const (
	BillStatusPending   BillStatus = "pending"
	BillStatusCompleted BillStatus = "completed"
	BillStatusDeleted   BillStatus = "deleted"
)

// BillSnapshot is one fully computed bill.
type BillSnapshot struct {
	ID              snowflake.ID     `json:"id"`
	PatientRef      string           `json:"patient_ref"`
	BillingDate     string           `json:"billing_date"`
	LineItems       []ChargeLineItem `json:"line_items"`
	AdmissionFee    float64          `json:"admission_fee"`
	Discount        float64          `json:"discount"`
	Tax             float64          `json:"tax"`
	Gross           float64          `json:"gross"`
	Net             float64          `json:"net"`
	DepositsApplied float64          `json:"deposits_applied"`
	Balance         float64          `json:"balance"`
	PaymentMode     string           `json:"payment_mode"`
	Status          BillStatus       `json:"status"`
	Reference       string           `json:"reference,omitempty"`
}

// Clone returns a deep copy. Edit sessions own their copy outright so an
// in-progress reconstruction cannot be clobbered by another view of the
// same record.
func (b BillSnapshot) Clone() BillSnapshot {
	out := b
	out.LineItems = make([]ChargeLineItem, len(b.LineItems))
	for i, item := range b.LineItems {
		out.LineItems[i] = item
		if item.Stay != nil {
			stay := *item.Stay
			out.LineItems[i].Stay = &stay
		}
	}
	return out
}
