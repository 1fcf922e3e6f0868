// Package handler is the thin HTTP layer over the registration service. It
// decodes requests, delegates, and encodes results; no business logic lives
// here.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/registration/dedupe"
	"rollcall/internal/registration/models"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/requestcontext"
)

const proofHeader = "X-Auth-Proof"

// RegistrationService is what the handler needs from the service layer.
type RegistrationService interface {
	Submit(ctx context.Context, proof string, sub models.Submission) (*models.Receipt, error)
	CheckDuplicates(ctx context.Context, q dedupe.Query) (*models.DuplicateResult, error)
	Get(ctx context.Context, id int64) (*models.Record, error)
	List(ctx context.Context, query string) ([]*models.Record, error)
	Update(ctx context.Context, id int64, upd models.Update) (*models.Record, error)
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	svc    RegistrationService
	logger *slog.Logger
}

func New(svc RegistrationService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/records", h.handleSubmit)
	r.Get("/records", h.handleList)
	r.Post("/records/check-duplicates", h.handleCheckDuplicates)
	r.Get("/records/{id}", h.handleGet)
	r.Put("/records/{id}", h.handleUpdate)
	r.Delete("/records/{id}", h.handleDelete)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}

	sub, err := models.ParseSubmission(body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.svc.Submit(r.Context(), r.Header.Get(proofHeader), sub)
	if err != nil {
		h.logFailure(r, "submit failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"id":      receipt.ID,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logFailure(r, "list failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}
	upd, err := models.ParseUpdate(body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.svc.Update(r.Context(), id, upd)
	if err != nil {
		h.logFailure(r, "update failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		// Absence of the id is not an error for delete; a malformed id can
		// only ever name an absent record.
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.logFailure(r, "delete failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var q dedupe.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.svc.CheckDuplicates(r.Context(), q)
	if err != nil {
		h.logFailure(r, "duplicate check failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) logFailure(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"error", err,
		"request_id", requestcontext.RequestID(r.Context()),
	)
}

func recordID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return id, nil
}
