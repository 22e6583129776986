package engine

import (
	"math"
	"testing"

	"github.com/sevacare/ipdbilling/internal/bill/domain"
	"github.com/stretchr/testify/assert"
)

func TestStayDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"three days", "2026-01-01", "2026-01-04", 3},
		{"same day floors to one", "2026-01-01", "2026-01-01", 1},
		{"reversed dates use absolute difference", "2026-01-04", "2026-01-01", 3},
		{"partial day rounds up", "2026-01-01", "2026-01-02T06:00:00Z", 2},
		{"unparseable start fails soft to one", "someday", "2026-01-04", 1},
		{"unparseable end fails soft to one", "2026-01-01", "", 1},
		{"dd-mm-yyyy layout", "01-01-2026", "04-01-2026", 3},
		{"dd/mm/yyyy layout", "01/01/2026", "03/01/2026", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StayDays(tc.start, tc.end))
		})
	}
}

func TestStaySegmentTotal(t *testing.T) {
	seg := domain.StaySegment{
		RoomType:    domain.RoomGeneralWard,
		StartDate:   "2026-01-01",
		EndDate:     "2026-01-04",
		BedRate:     1000,
		NursingRate: 200,
		RMORate:     100,
		DoctorRate:  500,
	}
	total, anomalies := StaySegmentTotal(seg)
	assert.Equal(t, 5400.0, total)
	assert.Empty(t, anomalies)
}

func TestStaySegmentTotalClampsNonFiniteRates(t *testing.T) {
	seg := domain.StaySegment{
		RoomType:    domain.RoomICU,
		StartDate:   "2026-01-01",
		EndDate:     "2026-01-02",
		BedRate:     3000,
		NursingRate: math.NaN(),
		RMORate:     math.Inf(1),
		DoctorRate:  1000,
	}
	total, anomalies := StaySegmentTotal(seg)
	assert.Equal(t, 4000.0, total)
	assert.Len(t, anomalies, 2)
	assert.Equal(t, "nursing_rate", anomalies[0].Field)
	assert.Equal(t, "rmo_rate", anomalies[1].Field)
}

func TestStaySegmentTotalClampsNegativeRates(t *testing.T) {
	seg := domain.StaySegment{
		RoomType:    domain.RoomICU,
		StartDate:   "2026-01-01",
		EndDate:     "2026-01-02",
		BedRate:     3000,
		NursingRate: -800,
		RMORate:     300,
		DoctorRate:  1000,
	}
	total, anomalies := StaySegmentTotal(seg)
	assert.Equal(t, 4300.0, total)
	if assert.Len(t, anomalies, 1) {
		assert.Equal(t, "nursing_rate", anomalies[0].Field)
		assert.Equal(t, "negative amount clamped to 0", anomalies[0].Reason)
	}
}

func TestServiceTotal(t *testing.T) {
	total, anomalies := ServiceTotal(domain.ServiceCharge{Name: "X-Ray", Quantity: 2, UnitPrice: 350})
	assert.Equal(t, 700.0, total)
	assert.Empty(t, anomalies)

	// Zero quantity floors to one.
	total, _ = ServiceTotal(domain.ServiceCharge{Name: "ECG", Quantity: 0, UnitPrice: 500})
	assert.Equal(t, 500.0, total)

	total, anomalies = ServiceTotal(domain.ServiceCharge{Name: "Lab", Quantity: math.NaN(), UnitPrice: 250})
	assert.Equal(t, 250.0, total)
	assert.Len(t, anomalies, 1)

	// A negative price never subtracts from the bill.
	total, anomalies = ServiceTotal(domain.ServiceCharge{Name: "Refund", Quantity: 1, UnitPrice: -250})
	assert.Equal(t, 0.0, total)
	if assert.Len(t, anomalies, 1) {
		assert.Equal(t, "unit_price", anomalies[0].Field)
	}
}

func TestGrossTotalAgreesWithCompute(t *testing.T) {
	sheet := domain.ChargeSheet{
		PatientRef:   "IPD-1002",
		AdmissionFee: 2000,
		Discount:     500,
		Stays: []domain.StaySegment{{
			RoomType:    domain.RoomICU,
			StartDate:   "2026-02-10",
			EndDate:     "2026-02-11",
			BedRate:     3000,
			NursingRate: 800,
			RMORate:     300,
			DoctorRate:  1000,
		}},
		Services: []domain.ServiceCharge{{Name: "X-Ray", Quantity: 2, UnitPrice: 350}},
	}

	gross, anomalies := GrossTotal(sheet)
	assert.Empty(t, anomalies)
	assert.Equal(t, 7800.0, gross)

	snapshot, _ := Compute(sheet)
	assert.Equal(t, gross, snapshot.Gross)
}

func TestNetTotalClampsAtZero(t *testing.T) {
	assert.Equal(t, 6600.0, NetTotal(7100, 500, 0))
	assert.Equal(t, 0.0, NetTotal(100, 500, 0))
	assert.Equal(t, 110.0, NetTotal(100, 0, 10))
}

func TestBalanceMayGoNegative(t *testing.T) {
	assert.Equal(t, 3600.0, Balance(6600, 3000))
	assert.Equal(t, -400.0, Balance(6600, 7000))
}

func TestComputeGeneralWardStay(t *testing.T) {
	sheet := domain.ChargeSheet{
		PatientRef:  "IPD-1001",
		BillingDate: "2026-01-04",
		Stays: []domain.StaySegment{{
			RoomType:    domain.RoomGeneralWard,
			StartDate:   "2026-01-01",
			EndDate:     "2026-01-04",
			BedRate:     1000,
			NursingRate: 200,
			RMORate:     100,
			DoctorRate:  500,
		}},
	}

	snapshot, anomalies := Compute(sheet)
	assert.Empty(t, anomalies)
	assert.Equal(t, 5400.0, snapshot.Gross)
	assert.Equal(t, 5400.0, snapshot.Net)
	assert.Equal(t, domain.BillStatusPending, snapshot.Status)

	if assert.Len(t, snapshot.LineItems, 1) {
		item := snapshot.LineItems[0]
		assert.Equal(t, domain.CategoryStay, item.Category)
		assert.Equal(t, "General Ward - Room Stay (3 days)", item.Label)
		assert.Equal(t, 3.0, item.Quantity)
		assert.Equal(t, 1800.0, item.UnitRate)
		if assert.NotNil(t, item.Stay) {
			assert.Equal(t, 3, item.Stay.Days)
			assert.Equal(t, 1000.0, item.Stay.BedRate)
		}
	}
}

func TestComputeAdmissionDiscountAndServices(t *testing.T) {
	sheet := domain.ChargeSheet{
		PatientRef:   "IPD-1002",
		AdmissionFee: 2000,
		Discount:     500,
		Stays: []domain.StaySegment{{
			RoomType:    domain.RoomICU,
			StartDate:   "2026-02-10",
			EndDate:     "2026-02-11",
			BedRate:     3000,
			NursingRate: 800,
			RMORate:     300,
			DoctorRate:  1000,
		}},
	}

	snapshot, anomalies := Compute(sheet)
	assert.Empty(t, anomalies)
	assert.Equal(t, 7100.0, snapshot.Gross)
	assert.Equal(t, 6600.0, snapshot.Net)
	assert.Equal(t, 2000.0, snapshot.AdmissionFee)

	if assert.Len(t, snapshot.LineItems, 2) {
		assert.Equal(t, domain.CategoryAdmission, snapshot.LineItems[0].Category)
		assert.Equal(t, "Admission Fee", snapshot.LineItems[0].Label)
		assert.Equal(t, "ICU - Room Stay (1 day)", snapshot.LineItems[1].Label)
	}
}

func TestComputeSkipsZeroAdmissionLine(t *testing.T) {
	sheet := domain.ChargeSheet{
		PatientRef: "IPD-1001",
		Services:   []domain.ServiceCharge{{Name: "Pharmacy", Quantity: 1, UnitPrice: 840}},
	}
	snapshot, _ := Compute(sheet)
	if assert.Len(t, snapshot.LineItems, 1) {
		assert.Equal(t, domain.CategoryService, snapshot.LineItems[0].Category)
	}
	assert.Equal(t, 840.0, snapshot.Net)
}

func TestComputeReportsAnomaliesInsteadOfFailing(t *testing.T) {
	sheet := domain.ChargeSheet{
		PatientRef:   "IPD-1001",
		AdmissionFee: math.NaN(),
		Discount:     math.Inf(-1),
		Services:     []domain.ServiceCharge{{Name: "Lab", Quantity: 1, UnitPrice: 300}},
	}
	snapshot, anomalies := Compute(sheet)
	assert.Len(t, anomalies, 2)
	assert.Equal(t, 0.0, snapshot.AdmissionFee)
	assert.Equal(t, 0.0, snapshot.Discount)
	assert.Equal(t, 300.0, snapshot.Net)
}

func TestComputeClampsNegativeDiscount(t *testing.T) {
	sheet := domain.ChargeSheet{
		PatientRef: "IPD-1001",
		Discount:   -500,
		Services:   []domain.ServiceCharge{{Name: "Lab", Quantity: 1, UnitPrice: 300}},
	}
	snapshot, anomalies := Compute(sheet)
	assert.Len(t, anomalies, 1)
	assert.Equal(t, 0.0, snapshot.Discount)
	assert.Equal(t, 300.0, snapshot.Net)
}

func TestChargesFromItemsRoundTrip(t *testing.T) {
	sheet := domain.ChargeSheet{
		PatientRef:   "IPD-1002",
		BillingDate:  "2026-02-11",
		AdmissionFee: 2000,
		Discount:     500,
		Tax:          100,
		Stays: []domain.StaySegment{{
			RoomType:    domain.RoomICU,
			StartDate:   "2026-02-10",
			EndDate:     "2026-02-11",
			BedRate:     3000,
			NursingRate: 800,
			RMORate:     300,
			DoctorRate:  1000,
		}},
		Services: []domain.ServiceCharge{{Name: "X-Ray", Quantity: 2, UnitPrice: 350}},
	}

	snapshot, _ := Compute(sheet)
	rebuilt := ChargesFromItems(snapshot)

	assert.Equal(t, sheet.AdmissionFee, rebuilt.AdmissionFee)
	assert.Equal(t, sheet.Discount, rebuilt.Discount)
	assert.Equal(t, sheet.Tax, rebuilt.Tax)
	assert.Equal(t, sheet.Stays, rebuilt.Stays)
	assert.Equal(t, sheet.Services, rebuilt.Services)

	again, _ := Compute(rebuilt)
	assert.Equal(t, snapshot.Gross, again.Gross)
	assert.Equal(t, snapshot.Net, again.Net)
}

func TestChargesFromItemsStayWithoutBreakdownBecomesService(t *testing.T) {
	snapshot := domain.BillSnapshot{
		PatientRef: "IPD-1001",
		LineItems: []domain.ChargeLineItem{{
			Category: domain.CategoryStay,
			Label:    "ICU - Room Stay (3 days)",
			Quantity: 3,
			UnitRate: 5100,
			Total:    15300,
		}},
	}
	sheet := ChargesFromItems(snapshot)
	assert.Empty(t, sheet.Stays)
	if assert.Len(t, sheet.Services, 1) {
		assert.Equal(t, 15300.0, sheet.Services[0].UnitPrice)
	}

	recomputed, _ := Compute(sheet)
	assert.Equal(t, 15300.0, recomputed.Net)
}
