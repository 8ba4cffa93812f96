package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/service/appointments"
	"github.com/tthaschke-rgb/kalender/internal/service/employees"
)

type AppointmentService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, in appointments.UpdateInput) (domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error)
}

type EmployeeService interface {
	List(ctx context.Context) ([]domain.Employee, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Employee, error)
	Create(ctx context.Context, in employees.CreateInput) (domain.Employee, error)
	Update(ctx context.Context, id uuid.UUID, in employees.UpdateInput) (domain.Employee, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SettingsService interface {
	Get(ctx context.Context) (domain.CalendarSettings, error)
	Replace(ctx context.Context, s domain.CalendarSettings) (domain.CalendarSettings, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Appointments AppointmentService
	Employees    EmployeeService
	Settings     SettingsService
	DB           Pinger
}

type Options struct {
	RequestTimeout time.Duration
	// StaticDir, when set, serves unmatched GET requests from that directory.
	StaticDir string
}

type handler struct {
	appointments AppointmentService
	employees    EmployeeService
	settings     SettingsService
	db           Pinger
	log          *slog.Logger
}

func NewRouter(deps Deps, opts Options, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{
		appointments: deps.Appointments,
		employees:    deps.Employees,
		settings:     deps.Settings,
		db:           deps.DB,
		log:          log.With(slog.String("component", "http")),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.log), defaultRequestTimeout(opts.RequestTimeout))

	r.GET("/healthz", h.healthz)

	r.GET("/employees", h.listEmployees)
	r.POST("/employees", h.createEmployee)
	r.GET("/employees/:id", h.getEmployee)
	r.PUT("/employees/:id", h.updateEmployee)
	r.DELETE("/employees/:id", h.deleteEmployee)

	r.GET("/appointments", h.listAppointments)
	r.POST("/appointments", h.createAppointment)
	r.GET("/appointments/:id", h.getAppointment)
	r.PUT("/appointments/:id", h.updateAppointment)
	r.DELETE("/appointments/:id", h.deleteAppointment)

	r.GET("/settings", h.getSettings)
	r.POST("/settings", h.replaceSettings)

	if opts.StaticDir != "" {
		files := http.FileServer(http.Dir(opts.StaticDir))
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				notFound(c)
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	} else {
		r.NoRoute(notFound)
	}

	return r
}

func (h *handler) healthz(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		h.log.Warn("health check failed", slog.Any("err", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorBody{Error: "NotFound", Message: "no such resource"})
}
