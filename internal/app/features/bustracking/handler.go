// Package bustracking serves campus bus routes and their live positions.
package bustracking

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	busstore "github.com/dalemusser/collegeportal/internal/app/store/buses"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/formutil"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves bus tracking.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	buses *busstore.Store
}

// NewHandler wires the handler to the bus store.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, ErrLog: errLog, buses: busstore.New(db)}
}

// Routes mounts the bus endpoints at /api/v1/bus-tracking.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeBus)
	return r
}

// ServeList lists buses in service by route number.
// GET /api/v1/bus-tracking
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list buses")
	defer cancel()

	list, err := h.buses.Active(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list buses failed", err, "")
		return
	}
	uierrors.List(w, list, len(list), nil)
}

// ServeBus returns one bus, active or not.
// GET /api/v1/bus-tracking/{id}
func (h *Handler) ServeBus(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ParamID(r, "id")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid bus id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get bus")
	defer cancel()

	b, err := h.buses.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Bus not found with id of "+id.Hex())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load bus failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, b)
}
