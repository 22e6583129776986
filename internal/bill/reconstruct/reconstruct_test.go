package reconstruct

import (
	"testing"
	"time"

	"github.com/sevacare/ipdbilling/internal/bill/domain"
	"github.com/sevacare/ipdbilling/internal/config"
	"github.com/sevacare/ipdbilling/internal/roomrates"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newReconstructor(t *testing.T) *Reconstructor {
	t.Helper()
	holder, err := roomrates.NewHolder(config.Config{}, zap.NewNop())
	assert.NoError(t, err)
	return New(Params{Rates: holder, Log: zap.NewNop()})
}

func TestReconstructSummaryTokens(t *testing.T) {
	r := newReconstructor(t)

	snapshot := r.Reconstruct(Input{
		Payload:      "Admission: ₹2000 | Stay: ₹5100 | Discount: ₹500",
		StoredAmount: 6600,
		PatientRef:   "IPD-1002",
		RecordDate:   time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC),
		Status:       domain.BillStatusPending,
	})

	assert.Equal(t, 2000.0, snapshot.AdmissionFee)
	assert.Equal(t, 500.0, snapshot.Discount)
	assert.Equal(t, 0.0, snapshot.Tax)
	assert.Equal(t, 7100.0, snapshot.Gross)
	assert.Equal(t, 6600.0, snapshot.Net)
	assert.Equal(t, domain.BillStatusPending, snapshot.Status)

	var stayTotal float64
	for _, item := range snapshot.LineItems {
		if item.Category == domain.CategoryStay {
			stayTotal += item.Total
		}
	}
	assert.Equal(t, 5100.0, stayTotal)
}

func TestReconstructInfersRoomTypeAndDaysFromLabel(t *testing.T) {
	r := newReconstructor(t)

	snapshot := r.Reconstruct(Input{
		Payload:      "Stay: ₹15300 | ICU - Room Stay (3 days)",
		StoredAmount: 15300,
		PatientRef:   "IPD-1002",
		RecordDate:   time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
	})

	var stay *domain.ChargeLineItem
	for i := range snapshot.LineItems {
		if snapshot.LineItems[i].Category == domain.CategoryStay {
			stay = &snapshot.LineItems[i]
		}
	}
	if assert.NotNil(t, stay) {
		assert.NotNil(t, stay.Stay)
		assert.Equal(t, domain.RoomICU, stay.Stay.RoomType)
		assert.Equal(t, 3, stay.Stay.Days)
		assert.Equal(t, 15300.0, stay.Total)
		// 5100/day matches the canonical ICU tariff exactly.
		assert.Equal(t, 3000.0, stay.Stay.BedRate)
		assert.Equal(t, 800.0, stay.Stay.NursingRate)
	}
	assert.Equal(t, 15300.0, snapshot.Net)
}

func TestReconstructScalesNonCanonicalRate(t *testing.T) {
	r := newReconstructor(t)

	// 10200 over 2 days is twice the canonical ICU per-day sum of 5100.
	snapshot := r.Reconstruct(Input{
		Payload:      "Stay: ₹20400 | ICU (2 days)",
		StoredAmount: 20400,
		RecordDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	var breakdown *domain.StayBreakdown
	for _, item := range snapshot.LineItems {
		if item.Stay != nil {
			breakdown = item.Stay
		}
	}
	if assert.NotNil(t, breakdown) {
		assert.InDelta(t, 6000.0, breakdown.BedRate, 0.001)
		assert.InDelta(t, 1600.0, breakdown.NursingRate, 0.001)
		assert.InDelta(t, 600.0, breakdown.RMORate, 0.001)
		assert.InDelta(t, 2000.0, breakdown.DoctorRate, 0.001)
	}
	assert.InDelta(t, 20400.0, snapshot.Net, 0.001)
}

func TestReconstructOpaqueFallback(t *testing.T) {
	r := newReconstructor(t)

	for _, payload := range []string{"", "garbage note with no amounts", "#LI#[trunc"} {
		snapshot := r.Reconstruct(Input{
			Payload:      payload,
			StoredAmount: 4250,
			PatientRef:   "IPD-1001",
			Status:       domain.BillStatusCompleted,
		})

		if assert.Len(t, snapshot.LineItems, 1, "payload %q", payload) {
			assert.Equal(t, "Treatment Charges", snapshot.LineItems[0].Label)
			assert.Equal(t, 4250.0, snapshot.LineItems[0].Total)
		}
		assert.Equal(t, 4250.0, snapshot.Net)
		assert.Equal(t, domain.BillStatusCompleted, snapshot.Status)
	}
}

func TestReconstructBackFillsAdmissionFromStoredAmount(t *testing.T) {
	r := newReconstructor(t)

	// No admission token, stored amount exceeds the recovered net by 2000.
	snapshot := r.Reconstruct(Input{
		Payload:      "Stay: ₹5100",
		StoredAmount: 7100,
		RecordDate:   time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, 2000.0, snapshot.AdmissionFee)
	assert.Equal(t, 7100.0, snapshot.Net)
}

func TestReconstructBackFillDisabled(t *testing.T) {
	r := newReconstructor(t)
	r.TrustStoredAmount = false

	snapshot := r.Reconstruct(Input{
		Payload:      "Stay: ₹5100",
		StoredAmount: 7100,
		RecordDate:   time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, 0.0, snapshot.AdmissionFee)
	assert.Equal(t, 5100.0, snapshot.Net)
}

func TestReconstructNoBackFillWhenAdmissionTokenPresent(t *testing.T) {
	r := newReconstructor(t)

	// Recovered totals disagree with the stored amount, but an explicit
	// admission token means the recovered values win.
	snapshot := r.Reconstruct(Input{
		Payload:      "Admission: ₹1000 | Stay: ₹5100",
		StoredAmount: 9000,
		RecordDate:   time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, 1000.0, snapshot.AdmissionFee)
	assert.Equal(t, 6100.0, snapshot.Net)
}

func TestReconstructedStaysSurviveRecompute(t *testing.T) {
	r := newReconstructor(t)

	snapshot := r.Reconstruct(Input{
		Payload:      "Stay: ₹15300 | ICU - Room Stay (3 days)",
		StoredAmount: 15300,
		RecordDate:   time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
	})

	// Synthesized dates must reproduce the inferred day count.
	for _, item := range snapshot.LineItems {
		if item.Stay != nil {
			assert.Equal(t, "2026-02-10", item.Stay.StartDate)
			assert.Equal(t, "2026-02-13", item.Stay.EndDate)
		}
	}
}

func TestInferRoomType(t *testing.T) {
	tests := []struct {
		text string
		want domain.RoomType
	}{
		{"General Ward - Room Stay (3 days)", domain.RoomGeneralWard},
		{"GENERAL WARDS", domain.RoomGeneralWard},
		{"icu stay", domain.RoomICU},
		{"Intensive Care Unit", domain.RoomICU},
		{"NICU (2 days)", domain.RoomNICU},
		{"Neonatal ICU", domain.RoomNICU},
		{"ICCU", domain.RoomICCU},
		{"semi-private twin", domain.RoomSemiPrivate},
		{"Twin Sharing Room", domain.RoomSemiPrivate},
		{"Deluxe Suite", domain.RoomDeluxe},
		{"Single Room", domain.RoomPrivate},
		{"no recognisable words", domain.RoomGeneralWard},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, InferRoomType(tc.text), tc.text)
	}
}
