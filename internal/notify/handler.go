package notify

import (
	"net/http"

	"group-chat/internal/apperr"
	"group-chat/internal/httpx"
	myMiddleware "group-chat/internal/middleware"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // native apps send no Origin
	},
}

type Handler struct {
	hub     *Hub
	service *Service
}

func NewHandler(hub *Hub, service *Service) *Handler {
	return &Handler{hub: hub, service: service}
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, apperr.Unauthorized("Unauthorized"))
		return
	}
	var req tokenRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.service.RegisterToken(r.Context(), id.MemberID, req.Token); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, httpx.Fields{"token": req.Token})
}

// ServeWs attaches a device to the hub. The device token must be the one the
// caller registered.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	id, ok := myMiddleware.IdentityFrom(r.Context())
	if !ok {
		httpx.Error(w, apperr.Unauthorized("Unauthorized"))
		return
	}
	token := r.URL.Query().Get("device")
	if token == "" {
		httpx.Error(w, apperr.InvalidInput("Missing required information"))
		return
	}
	owns, err := h.service.Owns(r.Context(), id.MemberID, token)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if !owns {
		httpx.Error(w, apperr.Forbidden("device token not registered to caller"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade", "err", err)
		return
	}

	client := &Client{
		Hub:      h.hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		MemberID: id.MemberID,
		Token:    token,
	}
	if !h.hub.register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
