package member

import (
	"net/http"

	"group-chat/internal/httpx"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	m, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	httpx.Created(w, httpx.Fields{"memberId": m.ID, "email": m.Email, "username": m.Username})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	members, err := h.Service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, httpx.Fields{"rowCount": len(members), "members": members})
}
