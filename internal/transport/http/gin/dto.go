package httpgin

import (
	"time"

	"github.com/staymarket/staycore/internal/domain"
)

type CreateBookingRequest struct {
	GuestName  string `json:"guest_name" binding:"required"`
	GuestEmail string `json:"guest_email" binding:"required,email"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Units      int    `json:"units" binding:"required,gt=0"`
}

type BookingResponse struct {
	BookingID            string `json:"booking_id"`
	Status               string `json:"status"`
	Nights               int    `json:"nights"`
	Units                int    `json:"units"`
	TotalPriceCents      int64  `json:"total_price_cents"`
	DepositRequiredCents int64  `json:"deposit_required_cents"`
	PaymentDeadline      string `json:"payment_deadline"`
}

type CancelBookingRequest struct {
	Actor  string `json:"actor" binding:"required,oneof=guest provider system"`
	Reason string `json:"reason"`
}

type RejectBookingRequest struct {
	Reason string `json:"reason"`
}

type RegisterPaymentRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	Method      string `json:"method" binding:"required"`
	Type        string `json:"type" binding:"omitempty,oneof=deposit partial final full"`
	IsManual    bool   `json:"is_manual"`
	Reference   string `json:"reference"`
	ConfirmedBy string `json:"confirmed_by"`
	AutoConfirm bool   `json:"auto_confirm"`
}

type RegisterPaymentResponse struct {
	Invoice       domain.Invoice `json:"invoice"`
	BookingStatus string         `json:"booking_status,omitempty"`
}

type CreateUnitRequest struct {
	OwnerID             string `json:"owner_id" binding:"required,uuid"`
	Name                string `json:"name" binding:"required"`
	Kind                string `json:"kind" binding:"required,oneof=room_type event_space"`
	TotalUnits          int    `json:"total_units" binding:"required,gt=0"`
	BasePriceCents      int64  `json:"base_price_cents" binding:"gte=0"`
	MinStayNights       int    `json:"min_stay_nights" binding:"gte=0"`
	WeekendSurchargePct int    `json:"weekend_surcharge_pct" binding:"gte=0,lte=100"`
	RequiresApproval    bool   `json:"requires_approval"`
}

type UpdateUnitRequest struct {
	Name                string `json:"name" binding:"required"`
	TotalUnits          int    `json:"total_units" binding:"required,gt=0"`
	BasePriceCents      int64  `json:"base_price_cents" binding:"gte=0"`
	MinStayNights       int    `json:"min_stay_nights" binding:"gte=0"`
	WeekendSurchargePct int    `json:"weekend_surcharge_pct" binding:"gte=0,lte=100"`
	RequiresApproval    bool   `json:"requires_approval"`
}

type InitAvailabilityRequest struct {
	StartDate          string `json:"start_date" binding:"required"`
	EndDate            string `json:"end_date" binding:"required"`
	PriceOverrideCents *int64 `json:"price_override_cents"`
	MinStay            int    `json:"min_stay" binding:"gte=0"`
}

type OverrideRequest struct {
	StartDate      string `json:"start_date" binding:"required"`
	EndDate        string `json:"end_date" binding:"required"`
	PriceCents     *int64 `json:"price_cents"`
	ClearPrice     bool   `json:"clear_price"`
	StopSell       *bool  `json:"stop_sell"`
	MinStay        *int   `json:"min_stay"`
	AvailableUnits *int   `json:"available_units"`
}

type SeasonRequest struct {
	OwnerID  string `json:"owner_id" binding:"required,uuid"`
	UnitID   string `json:"unit_id" binding:"omitempty,uuid"`
	Name     string `json:"name" binding:"required"`
	Kind     string `json:"kind" binding:"required,oneof=percent fixed"`
	Value    int64  `json:"value" binding:"required"`
	StartsOn string `json:"starts_on" binding:"required"`
	EndsOn   string `json:"ends_on" binding:"required"`
	Priority int    `json:"priority"`
	IsActive *bool  `json:"is_active"`
}

type PolicyRequest struct {
	DepositPercent  int   `json:"deposit_percent" binding:"gte=0,lte=100"`
	DepositMinCents int64 `json:"deposit_min_cents" binding:"gte=0"`
	Tier7Pct        int   `json:"tier7_pct" binding:"gte=0,lte=100"`
	Tier14Pct       int   `json:"tier14_pct" binding:"gte=0,lte=100"`
	Tier30Pct       int   `json:"tier30_pct" binding:"gte=0,lte=100"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
