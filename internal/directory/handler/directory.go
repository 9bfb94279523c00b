package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"autosnap/internal/directory/service"
	apperrors "autosnap/pkg/errors"
	httputil "autosnap/pkg/http"
	"autosnap/pkg/logger"
	"autosnap/pkg/middleware"
	"autosnap/pkg/model"
)

type DirectoryHandler struct {
	service service.DirectoryService
	log     *logger.Logger
}

func NewDirectoryHandler(service service.DirectoryService, log *logger.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		service: service,
		log:     log,
	}
}

func (h *DirectoryHandler) fail(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *DirectoryHandler) respond(w http.ResponseWriter, handler string, status int, data any) {
	var err error
	switch status {
	case http.StatusCreated:
		err = httputil.WriteCreated(w, data)
	default:
		err = httputil.WriteSuccess(w, data)
	}
	if err != nil {
		h.log.Error("failed to write response", "handler", handler, "status", status, "error", err)
	}
}

func caller(r *http.Request) (string, error) {
	uid, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return "", apperrors.Unauthorized("Authentication required")
	}
	return uid, nil
}

func (h *DirectoryHandler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "GetProfile", err)
		return
	}

	user, err := h.service.Profile(r.Context(), uid)
	if err != nil {
		h.fail(w, "GetProfile", err)
		return
	}
	h.respond(w, "GetProfile", http.StatusOK, user)
}

func (h *DirectoryHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "UpdateProfile", err)
		return
	}

	var update model.UserUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.fail(w, "UpdateProfile", err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), uid, &update)
	if err != nil {
		h.fail(w, "UpdateProfile", err)
		return
	}
	h.respond(w, "UpdateProfile", http.StatusOK, user)
}

func (h *DirectoryHandler) CreateService(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "CreateService", err)
		return
	}

	var svc model.Service
	if err := httputil.DecodeJSON(r, &svc); err != nil {
		h.fail(w, "CreateService", err)
		return
	}

	created, err := h.service.CreateService(r.Context(), uid, &svc)
	if err != nil {
		h.fail(w, "CreateService", err)
		return
	}
	h.respond(w, "CreateService", http.StatusCreated, created)
}

func (h *DirectoryHandler) ListServices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "ListServices", err)
		return
	}

	services, err := h.service.ListServices(r.Context(), uid)
	if err != nil {
		h.fail(w, "ListServices", err)
		return
	}

	if err := httputil.WriteList(w, services, len(services)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListServices", "operation", "WriteList", "error", err)
	}
}

func (h *DirectoryHandler) DeleteService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "DeleteService", err)
		return
	}

	if err := h.service.DeleteService(r.Context(), uid, ps.ByName("id")); err != nil {
		h.fail(w, "DeleteService", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *DirectoryHandler) RegisterClient(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "RegisterClient", err)
		return
	}

	var client model.Client
	if err := httputil.DecodeJSON(r, &client); err != nil {
		h.fail(w, "RegisterClient", err)
		return
	}

	created, err := h.service.RegisterClient(r.Context(), uid, &client)
	if err != nil {
		h.fail(w, "RegisterClient", err)
		return
	}
	h.respond(w, "RegisterClient", http.StatusCreated, created)
}

func (h *DirectoryHandler) CreateCenterClient(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "CreateCenterClient", err)
		return
	}

	var client model.Client
	if err := httputil.DecodeJSON(r, &client); err != nil {
		h.fail(w, "CreateCenterClient", err)
		return
	}

	created, err := h.service.CreateCenterClient(r.Context(), uid, &client)
	if err != nil {
		h.fail(w, "CreateCenterClient", err)
		return
	}
	h.respond(w, "CreateCenterClient", http.StatusCreated, created)
}

func (h *DirectoryHandler) GetClient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "GetClient", err)
		return
	}

	client, err := h.service.GetClient(r.Context(), uid, ps.ByName("id"))
	if err != nil {
		h.fail(w, "GetClient", err)
		return
	}
	h.respond(w, "GetClient", http.StatusOK, client)
}

func (h *DirectoryHandler) AddCar(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	uid, err := caller(r)
	if err != nil {
		h.fail(w, "AddCar", err)
		return
	}

	var car model.Car
	if err := httputil.DecodeJSON(r, &car); err != nil {
		h.fail(w, "AddCar", err)
		return
	}

	created, err := h.service.AddCar(r.Context(), uid, ps.ByName("id"), &car)
	if err != nil {
		h.fail(w, "AddCar", err)
		return
	}
	h.respond(w, "AddCar", http.StatusCreated, created)
}

func (h *DirectoryHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/profile", h.GetProfile)
	router.PUT("/api/v1/profile", h.UpdateProfile)

	router.POST("/api/v1/services", h.CreateService)
	router.GET("/api/v1/services", h.ListServices)
	router.DELETE("/api/v1/services/id/:id", h.DeleteService)

	router.POST("/api/v1/clients", h.RegisterClient)
	router.POST("/api/v1/center/clients", h.CreateCenterClient)
	router.GET("/api/v1/clients/id/:id", h.GetClient)
	router.POST("/api/v1/clients/id/:id/cars", h.AddCar)
}
