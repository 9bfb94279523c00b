package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"autosnap/internal/appointments/joiner"
	"autosnap/internal/appointments/live"
	"autosnap/internal/appointments/reader"
	"autosnap/internal/appointments/service"
	"autosnap/pkg/dates"
	apperrors "autosnap/pkg/errors"
	httputil "autosnap/pkg/http"
	"autosnap/pkg/locale"
	"autosnap/pkg/logger"
	"autosnap/pkg/middleware"
	"autosnap/pkg/model"
)

const (
	StreamPath         = "/api/v1/appointments/stream"
	streamEvent        = "appointments"
	streamPingInterval = 25 * time.Second
)

type dateView interface {
	Joined(ctx context.Context, owner string, day time.Time) ([]*joiner.Joined, error)
	Stats(ctx context.Context, owner string, today time.Time) (*live.Stats, error)
}

type AppointmentHandler struct {
	service      service.AppointmentService
	view         dateView
	reader       *reader.Reader
	log          *logger.Logger
	now          func() time.Time
	pingInterval time.Duration
}

func NewAppointmentHandler(service service.AppointmentService, view *live.DateView, reader *reader.Reader, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service:      service,
		view:         view,
		reader:       reader,
		log:          log,
		now:          time.Now,
		pingInterval: streamPingInterval,
	}
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func identity(r *http.Request) (string, error) {
	owner, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return "", apperrors.Unauthorized("Authentication required")
	}
	return owner, nil
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owner, err := identity(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var draft model.AppointmentDraft
	if err := httputil.DecodeJSON(r, &draft); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	appt, err := h.service.Create(r.Context(), owner, &draft)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, appt); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

// ByDate serves ?date= in either DD.MM.YYYY or YYYY-MM-DD; today when absent.
func (h *AppointmentHandler) ByDate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owner, err := identity(r)
	if err != nil {
		h.writeError(w, "ByDate", err)
		return
	}

	day := h.today(r.Context(), owner)
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err = dates.ParseDay(raw)
		if err != nil {
			h.writeError(w, "ByDate", apperrors.InvalidInput("invalid date parameter: "+raw))
			return
		}
	}

	joined, err := h.view.Joined(r.Context(), owner, day)
	if err != nil {
		h.writeError(w, "ByDate", err)
		return
	}

	if err := httputil.WriteList(w, joined, len(joined)); err != nil {
		h.log.Error("failed to write list response", "handler", "ByDate", "operation", "WriteList", "error", err)
	}
}

// today is the current day on the owner's wall clock, derived from the
// phone on their profile.
func (h *AppointmentHandler) today(ctx context.Context, owner string) time.Time {
	phone := ""
	user, err := h.reader.User(ctx, owner)
	if err != nil {
		h.log.Warn("Failed to read profile for local day", "user_id", owner, "error", err)
	} else if user != nil {
		phone = user.Phone
	}
	return locale.Today(h.now(), phone)
}

func (h *AppointmentHandler) Pending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owner, err := identity(r)
	if err != nil {
		h.writeError(w, "Pending", err)
		return
	}

	joined, err := h.service.Pending(r.Context(), owner)
	if err != nil {
		h.writeError(w, "Pending", err)
		return
	}

	if err := httputil.WriteList(w, joined, len(joined)); err != nil {
		h.log.Error("failed to write list response", "handler", "Pending", "operation", "WriteList", "error", err)
	}
}

func (h *AppointmentHandler) Accept(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	owner, err := identity(r)
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	appt, err := h.service.Accept(r.Context(), owner, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "Accept", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	owner, err := identity(r)
	if err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	if err := h.service.Reject(r.Context(), owner, ps.ByName("id")); err != nil {
		h.writeError(w, "Reject", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	owner, err := identity(r)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), owner, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) Dashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owner, err := identity(r)
	if err != nil {
		h.writeError(w, "Dashboard", err)
		return
	}

	stats, err := h.view.Stats(r.Context(), owner, h.today(r.Context(), owner))
	if err != nil {
		h.writeError(w, "Dashboard", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "Dashboard", "operation", "WriteSuccess", "error", err)
	}
}

// Stream pushes the caller's private appointments as server-sent events: the
// full sorted list on connect and again after every change. Slow clients
// only ever receive the newest list.
func (h *AppointmentHandler) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	owner, err := identity(r)
	if err != nil {
		h.writeError(w, "Stream", err)
		return
	}

	// the server write timeout would otherwise cut the stream
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.Debug("cannot clear write deadline", "handler", "Stream", "error", err)
	}

	stream, ok := httputil.NewEventStream(w)
	if !ok {
		h.writeError(w, "Stream", apperrors.Internal("Streaming is not supported", nil))
		return
	}

	updates := make(chan []*model.Appointment, 1)
	feed := live.NewFeed(r.Context(), h.reader, h.log, func(list []*model.Appointment) {
		for {
			select {
			case updates <- list:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer feed.Close()

	if err := feed.SetIdentity(owner); err != nil {
		if sendErr := stream.Send("error", apperrors.AsAppError(err)); sendErr != nil {
			h.log.Debug("stream closed", "owner", owner, "error", sendErr)
		}
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case list := <-updates:
			if err := stream.Send(streamEvent, list); err != nil {
				h.log.Debug("stream closed", "owner", owner, "error", err)
				return
			}
		case <-ticker.C:
			if err := stream.Ping(); err != nil {
				h.log.Debug("stream closed", "owner", owner, "error", err)
				return
			}
		}
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Create)
	router.GET("/api/v1/appointments", h.ByDate)
	router.GET("/api/v1/appointments/pending", h.Pending)
	router.GET(StreamPath, h.Stream)
	router.POST("/api/v1/appointments/id/:id/accept", h.Accept)
	router.POST("/api/v1/appointments/id/:id/reject", h.Reject)
	router.DELETE("/api/v1/appointments/id/:id", h.Delete)
	router.GET("/api/v1/dashboard", h.Dashboard)
}
