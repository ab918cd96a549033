package booking

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/staymarket/staycore/internal/domain"
	redisx "github.com/staymarket/staycore/internal/redis"
	postgresrepo "github.com/staymarket/staycore/internal/repository/postgres"
	redisrepo "github.com/staymarket/staycore/internal/repository/redis"
)

// fakeDB is an in-memory stand-in for the postgres handle, dispatching on the
// repositories' SQL. It mirrors the statements' semantics closely enough to
// drive whole service flows: the conditional reserve touches either every
// night or none (a partial match would be rolled back by the surrounding
// transaction), the guarded status UPDATE honors its source set, and the
// release clamps to total capacity.
type fakeDB struct {
	units    map[uuid.UUID]domain.InventoryUnit
	avail    map[string]*availRow
	bookings map[uuid.UUID]*domain.Booking
	allocs   []*allocRow
	paid     map[uuid.UUID]int64
	invoices int
	events   []eventRow

	// staleExpired, when set, is returned by the expired-booking listing
	// instead of the live table, modelling a snapshot read that went stale
	// before the sweep acted on it.
	staleExpired []domain.Booking
}

type availRow struct {
	unitID    uuid.UUID
	date      time.Time
	total     int
	available int
	override  *int64
	stopSell  bool
	minStay   int
}

type allocRow struct {
	bookingID uuid.UUID
	unitID    uuid.UUID
	date      time.Time
	units     int
	released  bool
}

type eventRow struct {
	bookingID uuid.UUID
	action    string
	actor     string
	note      string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		units:    make(map[uuid.UUID]domain.InventoryUnit),
		avail:    make(map[string]*availRow),
		bookings: make(map[uuid.UUID]*domain.Booking),
		paid:     make(map[uuid.UUID]int64),
	}
}

func dayKey(unitID uuid.UUID, date time.Time) string {
	return unitID.String() + "|" + domain.DateOnly(date).Format(time.DateOnly)
}

func (f *fakeDB) addUnit(u domain.InventoryUnit) {
	f.units[u.ID] = u
}

func (f *fakeDB) seedAvailability(unitID uuid.UUID, start, end time.Time, total int) {
	for _, d := range domain.DatesIn(start, end) {
		f.avail[dayKey(unitID, d)] = &availRow{
			unitID: unitID, date: d, total: total, available: total,
		}
	}
}

func (f *fakeDB) availableOn(unitID uuid.UUID, date time.Time) int {
	return f.avail[dayKey(unitID, date)].available
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "available_units - $4"):
		return f.reserve(args)
	case strings.Contains(sql, "FROM booking_allocations al"):
		return f.release(args)
	case strings.Contains(sql, "UPDATE booking_allocations"):
		return f.markReleased(args)
	case strings.Contains(sql, "SET status = $2"):
		return f.updateStatus(args)
	case strings.Contains(sql, "cancel_reason = $2"):
		b, ok := f.bookings[args[0].(uuid.UUID)]
		if !ok {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		}
		b.CancelReason = args[1].(string)
		b.CancelActor = args[2].(string)
		return pgconn.NewCommandTag("UPDATE 1"), nil
	case strings.Contains(sql, "INSERT INTO booking_events"):
		f.events = append(f.events, eventRow{
			bookingID: args[0].(uuid.UUID),
			action:    args[1].(string),
			actor:     args[2].(string),
			note:      args[3].(string),
		})
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("fakeDB: unexpected exec: %s", sql)
}

func (f *fakeDB) reserve(args []any) (pgconn.CommandTag, error) {
	unitID := args[0].(uuid.UUID)
	start, end := args[1].(time.Time), args[2].(time.Time)
	units := args[3].(int)

	var matched []*availRow
	for _, d := range domain.DatesIn(start, end) {
		r, ok := f.avail[dayKey(unitID, d)]
		if !ok || r.stopSell || r.available < units {
			continue
		}
		matched = append(matched, r)
	}

	// Only a full match is applied: on a partial one the caller errors out
	// and the real transaction rolls the decrement back.
	if len(matched) == domain.Nights(start, end) {
		for _, r := range matched {
			r.available -= units
		}
	}

	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", len(matched))), nil
}

func (f *fakeDB) release(args []any) (pgconn.CommandTag, error) {
	bookingID := args[0].(uuid.UUID)

	var n int
	for _, al := range f.allocs {
		if al.bookingID != bookingID || al.released {
			continue
		}
		r := f.avail[dayKey(al.unitID, al.date)]
		if r.available+al.units < r.total {
			r.available += al.units
		} else {
			r.available = r.total
		}
		n++
	}

	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", n)), nil
}

func (f *fakeDB) markReleased(args []any) (pgconn.CommandTag, error) {
	bookingID := args[0].(uuid.UUID)

	var n int
	for _, al := range f.allocs {
		if al.bookingID == bookingID && !al.released {
			al.released = true
			n++
		}
	}

	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", n)), nil
}

func (f *fakeDB) updateStatus(args []any) (pgconn.CommandTag, error) {
	id := args[0].(uuid.UUID)
	to := args[1].(domain.BookingStatus)
	sources := args[2].([]string)

	b, ok := f.bookings[id]
	if !ok {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}

	for _, s := range sources {
		if string(b.Status) == s {
			b.Status = to
			return pgconn.NewCommandTag("UPDATE 1"), nil
		}
	}

	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	switch {
	case strings.Contains(sql, "FROM availability"):
		unitID := args[0].(uuid.UUID)
		start, end := args[1].(time.Time), args[2].(time.Time)

		var rows [][]any
		for _, d := range domain.DatesIn(start, end) {
			if r, ok := f.avail[dayKey(unitID, d)]; ok {
				rows = append(rows, []any{
					r.unitID, r.date, r.total, r.available, r.override, r.stopSell, r.minStay,
				})
			}
		}
		return &fakeRows{rows: rows}, nil

	case strings.Contains(sql, "FROM seasons"):
		return &fakeRows{}, nil

	case strings.Contains(sql, "payment_deadline <= $1"):
		now := args[0].(time.Time)

		expired := f.staleExpired
		if expired == nil {
			for _, b := range f.bookings {
				if b.Status == domain.StatusPendingPayment && !b.PaymentDeadline.After(now) {
					expired = append(expired, *b)
				}
			}
		}

		var rows [][]any
		for _, b := range expired {
			rows = append(rows, bookingVals(b))
		}
		return &fakeRows{rows: rows}, nil
	}

	return nil, fmt.Errorf("fakeDB: unexpected query: %s", sql)
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "FROM inventory_units WHERE id"):
		u, ok := f.units[args[0].(uuid.UUID)]
		if !ok {
			return &fakeRow{err: pgx.ErrNoRows}
		}
		return &fakeRow{vals: []any{
			u.ID, u.OwnerID, u.Name, u.Kind, u.TotalUnits, u.BasePriceCents,
			u.MinStayNights, u.WeekendSurchargePct, u.RequiresApproval, u.IsActive, u.CreatedAt,
		}}

	case strings.Contains(sql, "FROM owner_policies"):
		return &fakeRow{err: pgx.ErrNoRows}

	case strings.Contains(sql, "INSERT INTO bookings"):
		b := &domain.Booking{
			ID:                   args[0].(uuid.UUID),
			UnitID:               args[1].(uuid.UUID),
			GuestName:            args[2].(string),
			GuestEmail:           args[3].(string),
			Start:                args[4].(time.Time),
			End:                  args[5].(time.Time),
			Units:                args[6].(int),
			Nights:               args[7].(int),
			TotalPriceCents:      args[8].(int64),
			DepositRequiredCents: args[9].(int64),
			Status:               args[10].(domain.BookingStatus),
			PaymentDeadline:      args[11].(time.Time),
			CreatedAt:            time.Now(),
		}
		f.bookings[b.ID] = b
		return &fakeRow{vals: []any{b.CreatedAt}}

	case strings.Contains(sql, "SELECT status FROM bookings"):
		b, ok := f.bookings[args[0].(uuid.UUID)]
		if !ok {
			return &fakeRow{err: pgx.ErrNoRows}
		}
		return &fakeRow{vals: []any{string(b.Status)}}

	case strings.Contains(sql, "FROM bookings WHERE id"):
		b, ok := f.bookings[args[0].(uuid.UUID)]
		if !ok {
			return &fakeRow{err: pgx.ErrNoRows}
		}
		return &fakeRow{vals: bookingVals(*b)}

	case strings.Contains(sql, "sum(amount_cents)"):
		return &fakeRow{vals: []any{f.paid[args[0].(uuid.UUID)]}}
	}

	return &fakeRow{err: fmt.Errorf("fakeDB: unexpected query row: %s", sql)}
}

func (f *fakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	for _, q := range b.QueuedQueries {
		switch {
		case strings.Contains(q.SQL, "INSERT INTO booking_allocations"):
			f.allocs = append(f.allocs, &allocRow{
				bookingID: q.Arguments[0].(uuid.UUID),
				unitID:    q.Arguments[1].(uuid.UUID),
				date:      q.Arguments[2].(time.Time),
				units:     q.Arguments[3].(int),
			})
		case strings.Contains(q.SQL, "INSERT INTO invoices"):
			f.invoices++
		}
	}
	return fakeBatchResults{}
}

func bookingVals(b domain.Booking) []any {
	return []any{
		b.ID, b.UnitID, b.GuestName, b.GuestEmail, b.Start, b.End,
		b.Units, b.Nights, b.TotalPriceCents, b.DepositRequiredCents, b.Status,
		b.PaymentDeadline, b.CancelReason, b.CancelActor,
		b.ConfirmedAt, b.CheckedInAt, b.CheckedOutAt, b.CancelledAt, b.CreatedAt,
	}
}

type fakeRow struct {
	vals []any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.rows[r.idx-1], dest)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.idx-1], nil
}

type fakeBatchResults struct{}

func (fakeBatchResults) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, nil }
func (fakeBatchResults) Query() (pgx.Rows, error)         { return &fakeRows{}, nil }
func (fakeBatchResults) QueryRow() pgx.Row                { return &fakeRow{} }
func (fakeBatchResults) Close() error                     { return nil }

func scanInto(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("fakeDB: scanning %d values into %d targets", len(vals), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("fakeDB: scan target %d is not a pointer", i)
		}
		ev := dv.Elem()
		if vals[i] == nil {
			ev.Set(reflect.Zero(ev.Type()))
			continue
		}
		sv := reflect.ValueOf(vals[i])
		switch {
		case sv.Type().AssignableTo(ev.Type()):
			ev.Set(sv)
		case sv.Type().ConvertibleTo(ev.Type()):
			ev.Set(sv.Convert(ev.Type()))
		default:
			return fmt.Errorf("fakeDB: cannot scan %T into %T", vals[i], d)
		}
	}
	return nil
}

// newTestService wires the booking service over the fake handle. The redis
// client points nowhere; the after-commit invalidations ignore its errors.
func newTestService(db *fakeDB, cfg Config) *Service {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})

	if cfg.PaymentDeadline == 0 {
		cfg.PaymentDeadline = 48 * time.Hour
	}

	return New(
		postgresrepo.NewStoreWithDB(db),
		redisrepo.New(rdb),
		redisx.NewUnitsPubSub(rdb),
		nil,
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}
