package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/service"
	"github.com/tthaschke-rgb/kalender/internal/service/appointments"
	"github.com/tthaschke-rgb/kalender/internal/service/employees"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

type fakeAppointments struct {
	createFn func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	updateFn func(ctx context.Context, id uuid.UUID, in appointments.UpdateInput) (domain.Appointment, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	getFn    func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	listFn   func(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error)
}

func (f *fakeAppointments) Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeAppointments) Update(ctx context.Context, id uuid.UUID, in appointments.UpdateInput) (domain.Appointment, error) {
	if f.updateFn == nil {
		panic("Update not configured")
	}
	return f.updateFn(ctx, id, in)
}

func (f *fakeAppointments) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeAppointments) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeAppointments) List(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, in)
}

type fakeEmployees struct {
	listFn   func(ctx context.Context) ([]domain.Employee, error)
	getFn    func(ctx context.Context, id uuid.UUID) (domain.Employee, error)
	createFn func(ctx context.Context, in employees.CreateInput) (domain.Employee, error)
	updateFn func(ctx context.Context, id uuid.UUID, in employees.UpdateInput) (domain.Employee, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (f *fakeEmployees) List(ctx context.Context) ([]domain.Employee, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx)
}

func (f *fakeEmployees) Get(ctx context.Context, id uuid.UUID) (domain.Employee, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeEmployees) Create(ctx context.Context, in employees.CreateInput) (domain.Employee, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeEmployees) Update(ctx context.Context, id uuid.UUID, in employees.UpdateInput) (domain.Employee, error) {
	if f.updateFn == nil {
		panic("Update not configured")
	}
	return f.updateFn(ctx, id, in)
}

func (f *fakeEmployees) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, id)
}

type fakeSettings struct {
	getFn     func(ctx context.Context) (domain.CalendarSettings, error)
	replaceFn func(ctx context.Context, s domain.CalendarSettings) (domain.CalendarSettings, error)
}

func (f *fakeSettings) Get(ctx context.Context) (domain.CalendarSettings, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx)
}

func (f *fakeSettings) Replace(ctx context.Context, s domain.CalendarSettings) (domain.CalendarSettings, error) {
	if f.replaceFn == nil {
		panic("Replace not configured")
	}
	return f.replaceFn(ctx, s)
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(deps Deps, opts Options) *gin.Engine {
	if deps.Appointments == nil {
		deps.Appointments = &fakeAppointments{}
	}
	if deps.Employees == nil {
		deps.Employees = &fakeEmployees{}
	}
	if deps.Settings == nil {
		deps.Settings = &fakeSettings{}
	}
	return NewRouter(deps, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

var testAppointment = domain.Appointment{
	ID:              uuid.MustParse("00000000-0000-0000-0000-000000000101"),
	EmployeeID:      uuid.MustParse("00000000-0000-0000-0000-0000000000a1"),
	Date:            domain.Date{Year: 2026, Month: time.January, Day: 5},
	Start:           domain.Clock(10, 0),
	DurationMinutes: 45,
	CustomerName:    "Grace",
}

func TestCreateAppointment_Created(t *testing.T) {
	var got appointments.CreateInput
	r := newTestRouter(Deps{Appointments: &fakeAppointments{
		createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
			got = in
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "handler context must carry the default deadline")
			return testAppointment, nil
		},
	}}, Options{})

	w := do(t, r, http.MethodPost, "/appointments", map[string]any{
		"employeeId":   testAppointment.EmployeeID.String(),
		"date":         "2026-01-05",
		"start":        "10:00",
		"duration":     45,
		"customerName": "Grace",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "2026-01-05", got.Date)
	assert.Equal(t, 45, got.DurationMinutes)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var resp appointmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testAppointment.ID, resp.ID)
	assert.Equal(t, "10:00", resp.Start)
	assert.Equal(t, "10:45", resp.End)
	assert.Equal(t, "2026-01-05", resp.Date)
}

func TestCreateAppointment_ErrorMapping(t *testing.T) {
	conflictID := uuid.MustParse("00000000-0000-0000-0000-000000000202")
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		check      func(t *testing.T, w *httptest.ResponseRecorder, body errorBody)
	}{
		{
			name:       "conflict",
			err:        &domain.Rejection{Kind: domain.RejectConflictingAppointment, Reason: "overlaps", ConflictingID: conflictID},
			wantStatus: http.StatusBadRequest,
			wantKind:   "ConflictingAppointment",
			check: func(t *testing.T, w *httptest.ResponseRecorder, body errorBody) {
				require.NotNil(t, body.ConflictingAppointmentID)
				assert.Equal(t, conflictID, *body.ConflictingAppointmentID)
			},
		},
		{
			name:       "holiday",
			err:        &domain.Rejection{Kind: domain.RejectEmployeeUnavailable, Reason: "holiday"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "EmployeeUnavailable",
			check: func(t *testing.T, w *httptest.ResponseRecorder, body errorBody) {
				assert.Equal(t, "holiday", body.Reason)
			},
		},
		{
			name:       "outside hours",
			err:        &domain.Rejection{Kind: domain.RejectOutsideWorkingHours, Reason: "closed"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "OutsideWorkingHours",
		},
		{
			name:       "validation",
			err:        service.InvalidField("customerName", "customer name is required"),
			wantStatus: http.StatusBadRequest,
			wantKind:   "ValidationFailed",
			check: func(t *testing.T, w *httptest.ResponseRecorder, body errorBody) {
				assert.Equal(t, "customer name is required", body.Fields["customerName"])
			},
		},
		{
			name:       "busy",
			err:        service.ErrBusy,
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "Busy",
			check: func(t *testing.T, w *httptest.ResponseRecorder, body errorBody) {
				assert.Equal(t, "1", w.Header().Get("Retry-After"))
			},
		},
		{
			name:       "storage",
			err:        &store.StorageError{Op: "create appointment", Err: errors.New("connection refused")},
			wantStatus: http.StatusInternalServerError,
			wantKind:   "StorageUnavailable",
			check: func(t *testing.T, w *httptest.ResponseRecorder, body errorBody) {
				assert.NotContains(t, body.Message, "connection refused")
			},
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   "Timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(Deps{Appointments: &fakeAppointments{
				createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
					return domain.Appointment{}, tt.err
				},
			}}, Options{})

			w := do(t, r, http.MethodPost, "/appointments", map[string]any{"customerName": "x"})
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			body := decodeError(t, w)
			assert.Equal(t, tt.wantKind, body.Error)
			if tt.check != nil {
				tt.check(t, w, body)
			}
		})
	}
}

func TestCreateAppointment_MalformedBody(t *testing.T) {
	r := newTestRouter(Deps{}, Options{})
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "ValidationFailed", body.Error)
	assert.Contains(t, body.Fields, "body")
}

func TestUpdateAppointment_PassesOnlyProvidedFields(t *testing.T) {
	var got appointments.UpdateInput
	r := newTestRouter(Deps{Appointments: &fakeAppointments{
		updateFn: func(ctx context.Context, id uuid.UUID, in appointments.UpdateInput) (domain.Appointment, error) {
			assert.Equal(t, testAppointment.ID, id)
			got = in
			return testAppointment, nil
		},
	}}, Options{})

	w := do(t, r, http.MethodPut, "/appointments/"+testAppointment.ID.String(), map[string]any{"start": "11:00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, got.Start)
	assert.Equal(t, "11:00", *got.Start)
	assert.Nil(t, got.Date)
	assert.Nil(t, got.DurationMinutes)
	assert.Nil(t, got.CustomerName)
}

func TestAppointmentByID_NotFoundAndBadID(t *testing.T) {
	r := newTestRouter(Deps{Appointments: &fakeAppointments{
		getFn: func(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
			return domain.Appointment{}, store.ErrNotFound
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error { return nil },
	}}, Options{})

	w := do(t, r, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/appointments/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Fields, "id")

	w = do(t, r, http.MethodDelete, "/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListAppointments_FiltersAndOrphanFlag(t *testing.T) {
	var got appointments.ListInput
	orphan := testAppointment
	orphan.EmployeeMissing = true
	r := newTestRouter(Deps{Appointments: &fakeAppointments{
		listFn: func(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error) {
			got = in
			return []domain.Appointment{orphan}, nil
		},
	}}, Options{})

	w := do(t, r, http.MethodGet, "/appointments?employeeId=abc&date=2026-01-05", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", got.EmployeeID)
	assert.Equal(t, "2026-01-05", got.Date)

	var rows []appointmentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].EmployeeMissing)
}

func TestEmployees_CreateAndUpdate(t *testing.T) {
	id := uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	var created employees.CreateInput
	var updated employees.UpdateInput
	r := newTestRouter(Deps{Employees: &fakeEmployees{
		createFn: func(ctx context.Context, in employees.CreateInput) (domain.Employee, error) {
			created = in
			return domain.Employee{ID: id, FirstName: in.FirstName, WeeklyHours: in.WeeklyHours}, nil
		},
		updateFn: func(ctx context.Context, got uuid.UUID, in employees.UpdateInput) (domain.Employee, error) {
			updated = in
			return domain.Employee{ID: got, FirstName: "Ada", Color: *in.Color}, nil
		},
	}}, Options{})

	w := do(t, r, http.MethodPost, "/employees", map[string]any{
		"firstName":   "Ada",
		"weeklyHours": map[string]any{"monday": map[string]any{"enabled": true, "start": 8, "end": 12}},
		"holidays":    []map[string]string{{"start": "2026-02-01", "end": "2026-02-03"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Ada", created.FirstName)
	assert.Equal(t, domain.DayHours{Enabled: true, Start: 8, End: 12}, created.WeeklyHours[time.Monday])
	require.Len(t, created.Holidays, 1)
	assert.Equal(t, domain.Date{Year: 2026, Month: time.February, Day: 3}, created.Holidays[0].End)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["weeklyHours"], "monday")

	w = do(t, r, http.MethodPut, "/employees/"+id.String(), map[string]any{"color": "#123456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, updated.FirstName)
	require.NotNil(t, updated.Color)
	assert.Equal(t, "#123456", *updated.Color)
}

func TestEmployees_BadWeekdayIsRejected(t *testing.T) {
	r := newTestRouter(Deps{}, Options{})
	w := do(t, r, http.MethodPost, "/employees", map[string]any{
		"firstName":   "Ada",
		"weeklyHours": map[string]any{"someday": map[string]any{"enabled": true, "start": 8, "end": 12}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmployees_DeleteNotFound(t *testing.T) {
	r := newTestRouter(Deps{Employees: &fakeEmployees{
		deleteFn: func(ctx context.Context, id uuid.UUID) error { return store.ErrNotFound },
	}}, Options{})
	w := do(t, r, http.MethodDelete, "/employees/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettings_GetAndReplace(t *testing.T) {
	var replaced domain.CalendarSettings
	r := newTestRouter(Deps{Settings: &fakeSettings{
		getFn: func(ctx context.Context) (domain.CalendarSettings, error) {
			return domain.DefaultSettings(), nil
		},
		replaceFn: func(ctx context.Context, s domain.CalendarSettings) (domain.CalendarSettings, error) {
			replaced = s
			return s, nil
		},
	}}, Options{})

	w := do(t, r, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got settingsBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Kalender", got.Name)
	assert.True(t, got.WeeklyHours[time.Friday].Enabled)
	assert.False(t, got.WeeklyHours[time.Sunday].Enabled)

	w = do(t, r, http.MethodPost, "/settings", map[string]any{
		"name":     "Salon",
		"services": []map[string]any{{"id": "cut", "name": "Haircut", "duration": 30}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Salon", replaced.Name)
	require.Len(t, replaced.Services, 1)
	assert.Equal(t, 30, replaced.Services[0].DurationMinutes)
}

func TestHealthz(t *testing.T) {
	ok := newTestRouter(Deps{DB: fakePinger{}}, Options{})
	assert.Equal(t, http.StatusOK, do(t, ok, http.MethodGet, "/healthz", nil).Code)

	down := newTestRouter(Deps{DB: fakePinger{err: errors.New("down")}}, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, down, http.MethodGet, "/healthz", nil).Code)
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	r := newTestRouter(Deps{}, Options{StaticDir: dir})
	w := do(t, r, http.MethodGet, "/app.js", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = do(t, r, http.MethodPost, "/app.js", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	plain := newTestRouter(Deps{}, Options{})
	assert.Equal(t, http.StatusNotFound, do(t, plain, http.MethodGet, "/app.js", nil).Code)
}

func TestRequestID_IsEchoed(t *testing.T) {
	r := newTestRouter(Deps{DB: fakePinger{}}, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}
