package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/events"
	"github.com/tthaschke-rgb/kalender/internal/service"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

const (
	DefaultLockTimeout = 3 * time.Second

	// maxKeyMoves bounds how often an update retries when the appointment was moved by a
	// concurrent update between the first read and taking the locks.
	maxKeyMoves = 3
)

// EmployeeIndex answers which employees still exist. It is used to flag orphaned appointments.
type EmployeeIndex interface {
	ExistingEmployeeIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
}

type Options struct {
	LockTimeout time.Duration
	Events      events.Publisher
	Logger      *slog.Logger
}

type Service struct {
	repo      store.AppointmentRepository
	employees EmployeeIndex
	locks     *keyedLocker

	lockTimeout time.Duration
	events      events.Publisher
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewService(repo store.AppointmentRepository, employees EmployeeIndex, opts Options) *Service {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.Events == nil {
		opts.Events = events.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		employees:   employees,
		locks:       newKeyedLocker(),
		lockTimeout: opts.LockTimeout,
		events:      opts.Events,
		logger:      opts.Logger.With("component", "appointments"),
		tracer:      otel.Tracer("github.com/tthaschke-rgb/kalender/internal/service/appointments"),
	}
}

type CreateInput struct {
	EmployeeID string
	Date       string
	Start      string
	// DurationMinutes may be zero when ServiceID names a service; the service's
	// duration is used then.
	DurationMinutes int
	ServiceID       string
	CustomerName    string
	Phone           string
	Email           string
	Notes           string
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	EmployeeID      *string
	Date            *string
	Start           *string
	DurationMinutes *int
	ServiceID       *string
	CustomerName    *string
	Phone           *string
	Email           *string
	Notes           *string
}

type ListInput struct {
	EmployeeID string
	Date       string
	From       string
	To         string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (appt domain.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Create")
	defer func() { endSpan(span, err) }()

	proposed, err := parseCreate(in)
	if err != nil {
		return domain.Appointment{}, err
	}
	key := store.BookingKey{EmployeeID: proposed.EmployeeID, Date: proposed.Date}
	span.SetAttributes(attribute.String("booking.key", key.String()))

	release, err := s.lock(ctx, key)
	if err != nil {
		return domain.Appointment{}, err
	}
	defer release()

	err = s.repo.InBookingTransaction(ctx, []store.BookingKey{key}, func(ctx context.Context, tx store.BookingTx) error {
		admitted, err := s.admit(ctx, tx, proposed, uuid.Nil, proposed.ServiceID != "")
		if err != nil {
			return err
		}
		appt, err = tx.CreateAppointment(ctx, admitted)
		return storageConflict(err)
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.logger.Info("appointment created", appointmentAttrs(appt)...)
	s.publish(ctx, events.AppointmentCreated, appt)
	return appt, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (appt domain.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Update", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer func() { endSpan(span, err) }()

	if id == uuid.Nil {
		return domain.Appointment{}, service.InvalidField("id", "is required")
	}
	patch, err := parseUpdate(in)
	if err != nil {
		return domain.Appointment{}, err
	}

	current, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	for attempt := 0; attempt < maxKeyMoves; attempt++ {
		var moved *domain.Appointment
		appt, moved, err = s.updateOnce(ctx, current, patch)
		if err != nil {
			return domain.Appointment{}, err
		}
		if moved == nil {
			s.logger.Info("appointment updated", appointmentAttrs(appt)...)
			s.publish(ctx, events.AppointmentUpdated, appt)
			return appt, nil
		}
		current = *moved
	}
	return domain.Appointment{}, service.ErrBusy
}

// updateOnce locks the keys of current and of the patched appointment. If the stored
// appointment no longer matches current's key, it returns the stored version as moved
// and the caller retries with it.
func (s *Service) updateOnce(ctx context.Context, current domain.Appointment, patch appointmentPatch) (domain.Appointment, *domain.Appointment, error) {
	oldKey := bookingKey(current)
	newKey := bookingKey(patch.apply(current))
	keys := []store.BookingKey{oldKey, newKey}

	release, err := s.lock(ctx, keys...)
	if err != nil {
		return domain.Appointment{}, nil, err
	}
	defer release()

	var updated domain.Appointment
	var moved *domain.Appointment
	err = s.repo.InBookingTransaction(ctx, keys, func(ctx context.Context, tx store.BookingTx) error {
		stored, err := tx.GetAppointment(ctx, current.ID)
		if err != nil {
			return err
		}
		if bookingKey(stored) != oldKey {
			moved = &stored
			return nil
		}
		proposed := patch.apply(stored)
		admitted, err := s.admit(ctx, tx, proposed, stored.ID, patch.serviceID != nil && *patch.serviceID != "")
		if err != nil {
			return err
		}
		updated, err = tx.UpdateAppointment(ctx, admitted)
		return storageConflict(err)
	})
	if err != nil {
		return domain.Appointment{}, nil, err
	}
	return updated, moved, nil
}

// admit resolves the service duration and runs the conflict engine against the current
// state of the booking key. checkService is false when the service id was not supplied
// by the caller, so a service removed from settings later does not block unrelated edits.
func (s *Service) admit(ctx context.Context, tx store.BookingTx, proposed domain.Appointment, excludingID uuid.UUID, checkService bool) (domain.Appointment, error) {
	var employee *domain.Employee
	e, err := tx.GetEmployee(ctx, proposed.EmployeeID)
	switch {
	case err == nil:
		employee = &e
	case !errors.Is(err, store.ErrNotFound):
		return domain.Appointment{}, err
	}

	settings, err := tx.GetSettings(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}

	if checkService {
		svc, ok := settings.Service(proposed.ServiceID)
		if !ok {
			return domain.Appointment{}, service.InvalidField("serviceId", fmt.Sprintf("unknown service %q", proposed.ServiceID))
		}
		if proposed.DurationMinutes == 0 {
			proposed.DurationMinutes = svc.DurationMinutes
		}
	}

	existing, err := tx.ListByEmployeeAndDate(ctx, proposed.EmployeeID, proposed.Date)
	if err != nil {
		return domain.Appointment{}, err
	}
	return domain.Evaluate(proposed, existing, employee, settings, excludingID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Delete", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer func() { endSpan(span, err) }()

	if id == uuid.Nil {
		return service.InvalidField("id", "is required")
	}
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		return err
	}

	s.logger.Info("appointment deleted", slog.String("appointment_id", id.String()))
	s.publish(ctx, events.AppointmentDeleted, appt)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (appt domain.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.Get", trace.WithAttributes(attribute.String("appointment.id", id.String())))
	defer func() { endSpan(span, err) }()

	appt, err = s.repo.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	rows := []domain.Appointment{appt}
	if err := s.flagOrphans(ctx, rows); err != nil {
		return domain.Appointment{}, err
	}
	return rows[0], nil
}

// List returns appointments matching the filter ordered by date and start. Appointments
// whose employee has been deleted are included with EmployeeMissing set.
func (s *Service) List(ctx context.Context, in ListInput) (rows []domain.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "appointments.List")
	defer func() { endSpan(span, err) }()

	filter, err := parseList(in)
	if err != nil {
		return nil, err
	}
	rows, err = s.repo.ListAppointments(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.flagOrphans(ctx, rows); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("appointments.count", len(rows)))
	return rows, nil
}

func (s *Service) flagOrphans(ctx context.Context, rows []domain.Appointment) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]struct{}, len(rows))
	for _, a := range rows {
		if _, ok := seen[a.EmployeeID]; ok {
			continue
		}
		seen[a.EmployeeID] = struct{}{}
		ids = append(ids, a.EmployeeID)
	}
	existing, err := s.employees.ExistingEmployeeIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range rows {
		_, ok := existing[rows[i].EmployeeID]
		rows[i].EmployeeMissing = !ok
	}
	return nil
}

func (s *Service) lock(ctx context.Context, keys ...store.BookingKey) (func(), error) {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	release, err := s.locks.Acquire(ctx, s.lockTimeout, names...)
	if errors.Is(err, service.ErrBusy) {
		s.logger.Warn("booking lock timeout", slog.Any("keys", names), slog.Duration("timeout", s.lockTimeout))
	}
	return release, err
}

// publish runs after commit. A failed publish is logged and does not fail the request.
func (s *Service) publish(ctx context.Context, t events.Type, appt domain.Appointment) {
	if err := s.events.Publish(ctx, events.NewAppointmentEvent(t, appt)); err != nil {
		s.logger.Warn("publish event failed", slog.String("type", string(t)), slog.String("appointment_id", appt.ID.String()), slog.Any("err", err))
	}
}

func appointmentAttrs(a domain.Appointment) []any {
	return []any{
		slog.String("appointment_id", a.ID.String()),
		slog.String("employee_id", a.EmployeeID.String()),
		slog.String("date", a.Date.String()),
		slog.String("start", a.Start.String()),
	}
}

func bookingKey(a domain.Appointment) store.BookingKey {
	return store.BookingKey{EmployeeID: a.EmployeeID, Date: a.Date}
}

// storageConflict turns an overlap caught by the database into the same rejection the
// engine produces. The conflicting appointment is not known at this point.
func storageConflict(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return &domain.Rejection{
			Kind:   domain.RejectConflictingAppointment,
			Reason: "overlaps an existing appointment",
		}
	}
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

type appointmentPatch struct {
	employeeID      *uuid.UUID
	date            *domain.Date
	start           *domain.ClockTime
	durationMinutes *int
	serviceID       *string
	customerName    *string
	phone           *string
	email           *string
	notes           *string
}

func (p appointmentPatch) apply(a domain.Appointment) domain.Appointment {
	if p.employeeID != nil {
		a.EmployeeID = *p.employeeID
	}
	if p.date != nil {
		a.Date = *p.date
	}
	if p.start != nil {
		a.Start = *p.start
	}
	if p.serviceID != nil {
		a.ServiceID = *p.serviceID
		if p.durationMinutes == nil && *p.serviceID != "" {
			// Filled from the service inside the booking transaction.
			a.DurationMinutes = 0
		}
	}
	if p.durationMinutes != nil {
		a.DurationMinutes = *p.durationMinutes
	}
	if p.customerName != nil {
		a.CustomerName = *p.customerName
	}
	if p.phone != nil {
		a.Phone = *p.phone
	}
	if p.email != nil {
		a.Email = *p.email
	}
	if p.notes != nil {
		a.Notes = *p.notes
	}
	return a
}

func parseCreate(in CreateInput) (domain.Appointment, error) {
	problems := map[string]string{}
	a := domain.Appointment{
		ServiceID:       strings.TrimSpace(in.ServiceID),
		DurationMinutes: in.DurationMinutes,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.TrimSpace(in.Email),
		Notes:           in.Notes,
	}

	if id, msg := parseEmployeeID(in.EmployeeID); msg != "" {
		problems["employeeId"] = msg
	} else {
		a.EmployeeID = id
	}
	if d, err := domain.ParseDate(in.Date); err != nil {
		problems["date"] = err.Error()
	} else {
		a.Date = d
	}
	if c, err := domain.ParseClockTime(in.Start); err != nil {
		problems["start"] = err.Error()
	} else {
		a.Start = c
	}
	if a.CustomerName == "" {
		problems["customerName"] = "customer name is required"
	}
	if msg := checkEmail(a.Email); msg != "" {
		problems["email"] = msg
	}

	if err := service.Invalid(problems); err != nil {
		return domain.Appointment{}, err
	}
	return a, nil
}

func parseUpdate(in UpdateInput) (appointmentPatch, error) {
	problems := map[string]string{}
	var p appointmentPatch

	if in.EmployeeID != nil {
		if id, msg := parseEmployeeID(*in.EmployeeID); msg != "" {
			problems["employeeId"] = msg
		} else {
			p.employeeID = &id
		}
	}
	if in.Date != nil {
		if d, err := domain.ParseDate(*in.Date); err != nil {
			problems["date"] = err.Error()
		} else {
			p.date = &d
		}
	}
	if in.Start != nil {
		if c, err := domain.ParseClockTime(*in.Start); err != nil {
			problems["start"] = err.Error()
		} else {
			p.start = &c
		}
	}
	if in.CustomerName != nil {
		name := strings.TrimSpace(*in.CustomerName)
		if name == "" {
			problems["customerName"] = "customer name is required"
		}
		p.customerName = &name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if msg := checkEmail(email); msg != "" {
			problems["email"] = msg
		}
		p.email = &email
	}
	if in.ServiceID != nil {
		id := strings.TrimSpace(*in.ServiceID)
		p.serviceID = &id
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		p.phone = &phone
	}
	p.durationMinutes = in.DurationMinutes
	p.notes = in.Notes

	if err := service.Invalid(problems); err != nil {
		return appointmentPatch{}, err
	}
	return p, nil
}

func parseList(in ListInput) (store.AppointmentFilter, error) {
	problems := map[string]string{}
	var f store.AppointmentFilter

	if strings.TrimSpace(in.EmployeeID) != "" {
		if id, msg := parseEmployeeID(in.EmployeeID); msg != "" {
			problems["employeeId"] = msg
		} else {
			f.EmployeeID = id
		}
	}
	parseOptionalDate := func(field, raw string, dst *domain.Date) {
		if strings.TrimSpace(raw) == "" {
			return
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			problems[field] = err.Error()
			return
		}
		*dst = d
	}
	parseOptionalDate("date", in.Date, &f.Date)
	parseOptionalDate("from", in.From, &f.From)
	parseOptionalDate("to", in.To, &f.To)
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		problems["to"] = "must not be before from"
	}

	if err := service.Invalid(problems); err != nil {
		return store.AppointmentFilter{}, err
	}
	return f, nil
}

func parseEmployeeID(raw string) (uuid.UUID, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, "employee id is required"
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "employee id must be a UUID"
	}
	return id, ""
}

func checkEmail(email string) string {
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "invalid email address"
	}
	return ""
}
