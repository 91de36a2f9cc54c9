package chat

import (
	"net/http"
	"net/url"

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
	r.Get("/", h.ListChats)
	r.Post("/", h.CreateChat)
	r.Delete("/{chatId}", h.DeleteChat)
	r.Get("/{chatId}/members", h.ListMembers)
	r.Put("/{chatId}/members", h.AddMember)
	r.Delete("/{chatId}/members/{email}", h.RemoveMember)
	r.Get("/{chatId}/messages", h.History)
	r.Post("/{chatId}/messages", h.SendMessage)
}

func caller(w http.ResponseWriter, r *http.Request) (myMiddleware.Identity, bool) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, apperr.Unauthorized("Unauthorized"))
	}
	return id, ok
}

func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req CreateChatRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	c, err := h.service.CreateChat(r.Context(), id, req.Name)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.Created(w, httpx.Fields{"chatId": c.ID, "name": c.Name})
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req AddMemberRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	res, err := h.service.AddMember(r.Context(), id, chi.URLParam(r, "chatId"), req.Email)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	fields := httpx.Fields{"chatId": res.ChatID, "email": res.Email}
	if res.Warning != "" {
		fields["warning"] = res.Warning
	}
	httpx.OK(w, fields)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	// chi matches on the raw path, so b%40x.com arrives still encoded.
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		httpx.Error(w, apperr.InvalidInput("Malformed parameter. email is not a valid path segment"))
		return
	}
	res, err := h.service.RemoveMember(r.Context(), id, chi.URLParam(r, "chatId"), email)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, httpx.Fields{"chatId": res.ChatID, "email": res.Email})
}

func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	chatID, err := h.service.DeleteChat(r.Context(), id, chi.URLParam(r, "chatId"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, httpx.Fields{"chatId": chatID})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	emails, err := h.service.ListMembers(r.Context(), chi.URLParam(r, "chatId"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, httpx.Fields{"rowCount": len(emails), "emails": emails})
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	chats, err := h.service.ListChatsForMember(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, httpx.Fields{"rowCount": len(chats), "chats": chats})
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	msg, err := h.service.SendMessage(r.Context(), id, chi.URLParam(r, "chatId"), req.Content)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.Created(w, httpx.Fields{"chatMessage": msg})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	msgs, err := h.service.History(r.Context(), id, chi.URLParam(r, "chatId"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, httpx.Fields{"rowCount": len(msgs), "messages": msgs})
}
