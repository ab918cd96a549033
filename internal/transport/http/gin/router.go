package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/staymarket/staycore/internal/domain"
	postgresrepo "github.com/staymarket/staycore/internal/repository/postgres"
	redisrepo "github.com/staymarket/staycore/internal/repository/redis"
	"github.com/staymarket/staycore/internal/service"
	"github.com/staymarket/staycore/internal/service/booking"
	"github.com/staymarket/staycore/internal/service/inventory"
	"github.com/staymarket/staycore/internal/service/payment"
	"github.com/staymarket/staycore/internal/service/query"
	"github.com/staymarket/staycore/internal/uow"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health & metrics
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public API
	r.GET("/units/:id", handleGetUnit(svcs))
	r.GET("/units/:id/calendar", handleGetCalendar(svcs))
	r.GET("/units/:id/quote", handleQuote(svcs))
	r.POST("/units/:id/bookings", handleCreateBooking(svcs, idem))

	r.GET("/bookings", handleListGuestBookings(svcs))
	r.GET("/bookings/:id", handleGetBooking(svcs))
	r.POST("/bookings/:id/cancel", handleCancelBooking(svcs))
	r.GET("/bookings/:id/payments", handlePaymentSummary(svcs))
	r.POST("/bookings/:id/payments", handleRegisterPayment(svcs))

	// Admin-API
	// TODO: add admin middleware
	admin := r.Group("/admin")
	{
		admin.POST("/units", handleCreateUnit(svcs))
		admin.PUT("/units/:id", handleUpdateUnit(svcs))
		admin.DELETE("/units/:id", handleDeactivateUnit(svcs))
		admin.POST("/units/:id/availability", handleInitAvailability(svcs))
		admin.PATCH("/units/:id/availability", handleOverride(svcs))
		admin.GET("/units/:id/bookings", handleListUnitBookings(svcs))
		admin.GET("/units/:id/occupancy", handleOccupancy(svcs))

		admin.POST("/bookings/:id/confirm", handleTransition(svcs, domain.StatusConfirmed))
		admin.POST("/bookings/:id/reject", handleReject(svcs))
		admin.POST("/bookings/:id/check-in", handleTransition(svcs, domain.StatusCheckedIn))
		admin.POST("/bookings/:id/check-out", handleTransition(svcs, domain.StatusCompleted))

		admin.POST("/seasons", handleCreateSeason(svcs))
		admin.PUT("/seasons/:id", handleUpdateSeason(svcs))
		admin.GET("/owners/:id/seasons", handleListSeasons(svcs))
		admin.GET("/owners/:id/units", handleListUnits(svcs))
		admin.GET("/owners/:id/policy", handleGetPolicy(svcs))
		admin.PUT("/owners/:id/policy", handleUpsertPolicy(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Get unit
// @Param    id  path  string  true  "Unit ID (uuid)"
// @Success  200  {object}  domain.InventoryUnit
// @Failure  404  {object}  ErrorResponse
// @Router   /units/{id} [get]
func handleGetUnit(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		u, err := svcs.Query.GetUnit(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, u, "public, max-age=60", true)
	}
}

// @Summary  Unit calendar
// @Param    id     path   string  true  "Unit ID (uuid)"
// @Param    start  query  string  true  "YYYY-MM-DD"
// @Param    end    query  string  true  "YYYY-MM-DD (exclusive)"
// @Success  200  {array}   query.CalendarDay
// @Failure  400  {object}  ErrorResponse
// @Router   /units/{id}/calendar [get]
func handleGetCalendar(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		start, end, ok := parseRangeQuery(c)
		if !ok {
			return
		}
		days, err := svcs.Query.Calendar(c.Request.Context(), id, start, end)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, days, "public, max-age=15", true)
	}
}

// @Summary  Price a prospective stay
// @Param    id     path   string  true   "Unit ID (uuid)"
// @Param    start  query  string  true   "YYYY-MM-DD"
// @Param    end    query  string  true   "YYYY-MM-DD (exclusive)"
// @Param    units  query  int     false  "unit count (default 1)"
// @Success  200  {object}  pricing.Quote
// @Failure  400  {object}  ErrorResponse
// @Router   /units/{id}/quote [get]
func handleQuote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		start, end, ok := parseRangeQuery(c)
		if !ok {
			return
		}
		units := parseIntDefault(c.Query("units"), 1)

		q, err := svcs.Query.Quote(c.Request.Context(), id, start, end, units)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

// @Summary  Create booking (idempotent)
// @Param    id   path  string  true  "Unit ID (uuid)"
// @Param    req  body  CreateBookingRequest true "payload"
// @Header   201  {string}  Idempotency-Key  "echo"
// @Success  201  {object}  BookingResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "no availability / idem in progress"
// @Failure  429  {object}  ErrorResponse "rate limited"
// @Router   /units/{id}/bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		unitID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		start, err := parseDate(req.StartDate)
		if err != nil {
			badRequest(c, "invalid start_date (YYYY-MM-DD)")
			return
		}
		end, err := parseDate(req.EndDate)
		if err != nil {
			badRequest(c, "invalid end_date (YYYY-MM-DD)")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(unitID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		rlKey := "ip:" + c.ClientIP()

		b, err := svcs.Booking.Create(c.Request.Context(), booking.CreateInput{
			UnitID:     unitID,
			GuestName:  req.GuestName,
			GuestEmail: req.GuestEmail,
			Start:      start,
			End:        end,
			Units:      req.Units,
		}, rlKey)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if errors.Is(err, booking.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
				return
			}
			respondErr(c, err)
			return
		}

		resp := bookingResponse(b)

		if idemStorageKey != "" && idem != nil {
			buf, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(buf))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get booking with money trail
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  query.BookingDetails
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		d, err := svcs.Query.GetBooking(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// @Summary  List bookings by guest email
// @Param    guest_email  query  string  true  "guest email"
// @Success  200  {array}  domain.Booking
// @Router   /bookings [get]
func handleListGuestBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("guest_email")
		if email == "" {
			badRequest(c, "guest_email is required")
			return
		}
		bookings, err := svcs.Query.ListGuestBookings(c.Request.Context(), email)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Cancel booking
// @Param    id   path  string  true  "Booking ID (uuid)"
// @Param    req  body  CancelBookingRequest true "payload"
// @Success  200  {object}  BookingResponse
// @Failure  409  {object}  ErrorResponse "illegal transition"
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req CancelBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		b, err := svcs.Booking.Cancel(c.Request.Context(), id, req.Actor, req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookingResponse(b))
	}
}

// @Summary  Payment summary for a booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  payment.Summary
// @Router   /bookings/{id}/payments [get]
func handlePaymentSummary(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		sum, err := svcs.Payment.Summarize(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

// @Summary  Register payment
// @Param    id   path  string  true  "Booking ID (uuid)"
// @Param    req  body  RegisterPaymentRequest true "payload"
// @Success  201  {object}  RegisterPaymentResponse
// @Failure  409  {object}  ErrorResponse "overpayment / booking closed"
// @Router   /bookings/{id}/payments [post]
func handleRegisterPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req RegisterPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		_, inv, err := svcs.Payment.Register(c.Request.Context(), payment.RegisterInput{
			BookingID:   id,
			AmountCents: req.AmountCents,
			Method:      req.Method,
			Type:        domain.PaymentType(req.Type),
			IsManual:    req.IsManual,
			Reference:   req.Reference,
			ConfirmedBy: req.ConfirmedBy,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := RegisterPaymentResponse{Invoice: inv}

		// With auto_confirm the payment doubles as a confirmation attempt:
		// the booking moves to confirmed once the deposit is covered and
		// simply stays put otherwise.
		if req.AutoConfirm {
			b, err := svcs.Booking.Confirm(c.Request.Context(), id, "system")
			if err == nil {
				resp.BookingStatus = string(b.Status)
			} else if !errors.Is(err, booking.ErrDepositNotMet) {
				var illegal booking.IllegalTransitionError
				if !errors.As(err, &illegal) {
					respondErr(c, err)
					return
				}
			}
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Create unit
// @Param    req body  CreateUnitRequest true "payload"
// @Success  201 {object} domain.InventoryUnit
// @Router   /admin/units [post]
func handleCreateUnit(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUnitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		ownerID, err := uuid.Parse(req.OwnerID)
		if err != nil {
			badRequest(c, "invalid owner_id")
			return
		}
		u, err := svcs.Inventory.CreateUnit(c.Request.Context(), inventory.CreateUnitInput{
			OwnerID:             ownerID,
			Name:                req.Name,
			Kind:                domain.UnitKind(req.Kind),
			TotalUnits:          req.TotalUnits,
			BasePriceCents:      req.BasePriceCents,
			MinStayNights:       req.MinStayNights,
			WeekendSurchargePct: req.WeekendSurchargePct,
			RequiresApproval:    req.RequiresApproval,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

// @Summary  Update unit
// @Param    id   path  string  true  "Unit ID (uuid)"
// @Param    req  body  UpdateUnitRequest true "payload"
// @Success  200  {object}  domain.InventoryUnit
// @Router   /admin/units/{id} [put]
func handleUpdateUnit(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req UpdateUnitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := svcs.Inventory.UpdateUnit(c.Request.Context(), id, inventory.UpdateUnitInput{
			Name:                req.Name,
			TotalUnits:          req.TotalUnits,
			BasePriceCents:      req.BasePriceCents,
			MinStayNights:       req.MinStayNights,
			WeekendSurchargePct: req.WeekendSurchargePct,
			RequiresApproval:    req.RequiresApproval,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// @Summary  Deactivate unit
// @Param    id  path  string  true  "Unit ID (uuid)"
// @Success  204
// @Failure  409  {object}  ErrorResponse "active bookings"
// @Router   /admin/units/{id} [delete]
func handleDeactivateUnit(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if err := svcs.Inventory.DeactivateUnit(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Initialize availability rows
// @Param    id   path  string  true  "Unit ID (uuid)"
// @Param    req  body  InitAvailabilityRequest true "payload"
// @Success  201  {object}  map[string]int64
// @Router   /admin/units/{id}/availability [post]
func handleInitAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req InitAvailabilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		start, end, ok := parseRangeBody(c, req.StartDate, req.EndDate)
		if !ok {
			return
		}
		inserted, err := svcs.Inventory.InitializeAvailability(c.Request.Context(), id, start, end, req.PriceOverrideCents, req.MinStay)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"inserted": inserted})
	}
}

// @Summary  Override price / stop-sell / min-stay over a range
// @Param    id   path  string  true  "Unit ID (uuid)"
// @Param    req  body  OverrideRequest true "payload"
// @Success  200  {object}  map[string]int64
// @Router   /admin/units/{id}/availability [patch]
func handleOverride(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req OverrideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		start, end, ok := parseRangeBody(c, req.StartDate, req.EndDate)
		if !ok {
			return
		}
		touched, err := svcs.Inventory.ApplyOverride(c.Request.Context(), id, start, end,
			postgresrepo.Override{
				PriceCents:     req.PriceCents,
				ClearPrice:     req.ClearPrice,
				StopSell:       req.StopSell,
				MinStay:        req.MinStay,
				AvailableUnits: req.AvailableUnits,
			})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": touched})
	}
}

// @Summary  List bookings touching a unit in a range
// @Param    id     path   string  true  "Unit ID (uuid)"
// @Param    start   query  string  true   "YYYY-MM-DD"
// @Param    end     query  string  true   "YYYY-MM-DD (exclusive)"
// @Param    status  query  string  false  "filter by booking status"
// @Success  200  {array}  domain.Booking
// @Router   /admin/units/{id}/bookings [get]
func handleListUnitBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		start, end, ok := parseRangeQuery(c)
		if !ok {
			return
		}
		bookings, err := svcs.Query.ListUnitBookings(c.Request.Context(), id, start, end)
		if err != nil {
			respondErr(c, err)
			return
		}

		if status := c.Query("status"); status != "" {
			filtered := bookings[:0]
			for _, b := range bookings {
				if string(b.Status) == status {
					filtered = append(filtered, b)
				}
			}
			bookings = filtered
		}

		c.JSON(http.StatusOK, bookings)
	}
}

// @Summary  Occupancy summary
// @Param    id     path   string  true  "Unit ID (uuid)"
// @Param    start  query  string  true  "YYYY-MM-DD"
// @Param    end    query  string  true  "YYYY-MM-DD (exclusive)"
// @Success  200  {object}  domain.OccupancySummary
// @Router   /admin/units/{id}/occupancy [get]
func handleOccupancy(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		start, end, ok := parseRangeQuery(c)
		if !ok {
			return
		}
		sum, err := svcs.Query.Occupancy(c.Request.Context(), id, start, end)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	}
}

// handleTransition covers confirm, check-in and check-out, which differ only
// in the target status.
func handleTransition(svcs *service.Services, to domain.BookingStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		actor := actorFrom(c)

		var (
			b   domain.Booking
			err error
		)
		switch to {
		case domain.StatusConfirmed:
			b, err = svcs.Booking.Confirm(c.Request.Context(), id, actor)
		case domain.StatusCheckedIn:
			b, err = svcs.Booking.CheckIn(c.Request.Context(), id, actor)
		case domain.StatusCompleted:
			b, err = svcs.Booking.CheckOut(c.Request.Context(), id, actor)
		}
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookingResponse(b))
	}
}

// @Summary  Reject a pending-approval booking
// @Param    id   path  string  true  "Booking ID (uuid)"
// @Param    req  body  RejectBookingRequest true "payload"
// @Success  200  {object}  BookingResponse
// @Router   /admin/bookings/{id}/reject [post]
func handleReject(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		// body is optional for rejects
		var req RejectBookingRequest
		_ = c.ShouldBindJSON(&req)
		b, err := svcs.Booking.Reject(c.Request.Context(), id, actorFrom(c), req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookingResponse(b))
	}
}

// @Summary  Create season
// @Param    req body  SeasonRequest true "payload"
// @Success  201 {object} domain.Season
// @Router   /admin/seasons [post]
func handleCreateSeason(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SeasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		in, err := seasonInput(req)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		season, err := svcs.Inventory.CreateSeason(c.Request.Context(), in)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, season)
	}
}

// @Summary  Update season
// @Param    id   path  string  true  "Season ID (uuid)"
// @Param    req  body  SeasonRequest true "payload"
// @Success  200  {object}  domain.Season
// @Router   /admin/seasons/{id} [put]
func handleUpdateSeason(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req SeasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		in, err := seasonInput(req)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		season := domain.Season{
			ID:       id,
			OwnerID:  in.OwnerID,
			UnitID:   in.UnitID,
			Name:     in.Name,
			Kind:     in.Kind,
			Value:    in.Value,
			StartsOn: in.StartsOn,
			EndsOn:   in.EndsOn,
			Priority: in.Priority,
			IsActive: req.IsActive == nil || *req.IsActive,
		}
		if err := svcs.Inventory.UpdateSeason(c.Request.Context(), season); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, season)
	}
}

// @Summary  List owner's seasons
// @Param    id  path  string  true  "Owner ID (uuid)"
// @Success  200  {array}  domain.Season
// @Router   /admin/owners/{id}/seasons [get]
func handleListSeasons(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		seasons, err := svcs.Inventory.ListSeasons(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, seasons)
	}
}

// @Summary  List owner's units
// @Param    id  path  string  true  "Owner ID (uuid)"
// @Success  200  {array}  domain.InventoryUnit
// @Router   /admin/owners/{id}/units [get]
func handleListUnits(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		units, err := svcs.Inventory.ListUnits(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, units)
	}
}

// @Summary  Get owner deposit / long-stay policy
// @Param    id  path  string  true  "Owner ID (uuid)"
// @Success  200  {object}  domain.OwnerPolicy
// @Router   /admin/owners/{id}/policy [get]
func handleGetPolicy(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Inventory.GetPolicy(c.Request.Context(), id, domain.OwnerPolicy{})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// @Summary  Set owner deposit / long-stay policy
// @Param    id   path  string  true  "Owner ID (uuid)"
// @Param    req  body  PolicyRequest true "payload"
// @Success  200  {object}  domain.OwnerPolicy
// @Router   /admin/owners/{id}/policy [put]
func handleUpsertPolicy(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req PolicyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p := domain.OwnerPolicy{
			OwnerID:         id,
			DepositPercent:  req.DepositPercent,
			DepositMinCents: req.DepositMinCents,
			Tier7Pct:        req.Tier7Pct,
			Tier14Pct:       req.Tier14Pct,
			Tier30Pct:       req.Tier30Pct,
		}
		if err := svcs.Inventory.UpsertPolicy(c.Request.Context(), p); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// --- Helpers ---

func bookingResponse(b domain.Booking) BookingResponse {
	return BookingResponse{
		BookingID:            b.ID.String(),
		Status:               string(b.Status),
		Nights:               b.Nights,
		Units:                b.Units,
		TotalPriceCents:      b.TotalPriceCents,
		DepositRequiredCents: b.DepositRequiredCents,
		PaymentDeadline:      b.PaymentDeadline.Format(time.RFC3339),
	}
}

func seasonInput(req SeasonRequest) (inventory.SeasonInput, error) {
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return inventory.SeasonInput{}, errors.New("invalid owner_id")
	}

	var unitID *uuid.UUID
	if req.UnitID != "" {
		id, err := uuid.Parse(req.UnitID)
		if err != nil {
			return inventory.SeasonInput{}, errors.New("invalid unit_id")
		}
		unitID = &id
	}

	starts, err := parseDate(req.StartsOn)
	if err != nil {
		return inventory.SeasonInput{}, errors.New("invalid starts_on (YYYY-MM-DD)")
	}
	ends, err := parseDate(req.EndsOn)
	if err != nil {
		return inventory.SeasonInput{}, errors.New("invalid ends_on (YYYY-MM-DD)")
	}

	return inventory.SeasonInput{
		OwnerID:  ownerID,
		UnitID:   unitID,
		Name:     req.Name,
		Kind:     domain.SeasonKind(req.Kind),
		Value:    req.Value,
		StartsOn: starts,
		EndsOn:   ends,
		Priority: req.Priority,
	}, nil
}

// actorFrom trusts the X-Actor header the upstream auth layer injects.
func actorFrom(c *gin.Context) string {
	if a := strings.TrimSpace(c.GetHeader("X-Actor")); a != "" {
		return a
	}
	return "provider"
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseRangeQuery(c *gin.Context) (time.Time, time.Time, bool) {
	return parseRangeBody(c, c.Query("start"), c.Query("end"))
}

func parseRangeBody(c *gin.Context, startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := parseDate(startStr)
	if err != nil {
		badRequest(c, "invalid start date (YYYY-MM-DD)")
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDate(endStr)
	if err != nil {
		badRequest(c, "invalid end date (YYYY-MM-DD)")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		unavailable booking.UnavailableError
		minStay     booking.MinStayError
		notInit     booking.NotInitializedError
		illegal     booking.IllegalTransitionError
		overpay     payment.OverpaymentError
		invalid     inventory.ValidationError
	)

	switch {
	// booking service
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: unavailable.Error()})
	case errors.As(err, &minStay):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: minStay.Error()})
	case errors.As(err, &notInit):
		c.JSON(http.StatusConflict, ErrorResponse{Error: notInit.Error()})
	case errors.As(err, &illegal):
		c.JSON(http.StatusConflict, ErrorResponse{Error: illegal.Error()})
	case errors.Is(err, booking.ErrUnitNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unit not found"})
	case errors.Is(err, booking.ErrUnitInactive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "unit is not active"})
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, booking.ErrDepositNotMet):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "required deposit not paid"})

	// payment service
	case errors.As(err, &overpay):
		c.JSON(http.StatusConflict, ErrorResponse{Error: overpay.Error()})
	case errors.Is(err, payment.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, payment.ErrBookingClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking is closed"})
	case errors.Is(err, payment.ErrNonPositive):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "payment amount must be positive"})

	// inventory service
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalid.Error()})
	case errors.Is(err, inventory.ErrUnitNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unit not found"})
	case errors.Is(err, inventory.ErrSeasonNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "season not found"})
	case errors.Is(err, inventory.ErrHasActiveBookings):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "unit has active bookings"})
	case errors.Is(err, inventory.ErrHorizonCeiling):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "range exceeds the initialization ceiling"})

	// query service
	case errors.Is(err, query.ErrUnitNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unit not found"})
	case errors.Is(err, query.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, query.ErrBadRange), errors.Is(err, query.ErrRangeTooWide):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	// concurrency
	case errors.Is(err, uow.ErrConcurrencyConflict):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "please retry"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
