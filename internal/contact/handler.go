package contact

import (
	"net/http"

	"group-chat/internal/apperr"
	"group-chat/internal/httpx"
	myMiddleware "group-chat/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Request)
	r.Post("/{requestId}/accept", h.Accept)
	r.Delete("/{memberId}", h.Remove)
}

func caller(w http.ResponseWriter, r *http.Request) (myMiddleware.Identity, bool) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, apperr.Unauthorized("Unauthorized"))
	}
	return id, ok
}

func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req RequestContactRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	c, err := h.service.RequestContact(r.Context(), id, req.MemberID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.Created(w, httpx.Fields{"requestId": c.ID, "memberId": c.MemberB})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.service.AcceptContact(r.Context(), id, chi.URLParam(r, "requestId"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	fields := httpx.Fields{"requestId": res.RequestID}
	if res.Warning != "" {
		fields["warning"] = res.Warning
	}
	httpx.OK(w, fields)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveContact(r.Context(), id, chi.URLParam(r, "memberId")); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, nil)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	entries, err := h.service.List(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, httpx.Fields{"rowCount": len(entries), "contacts": entries})
}
