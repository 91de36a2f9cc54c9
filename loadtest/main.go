package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const (
	BaseURL     = "http://localhost:8080"
	WSURL       = "ws://localhost:8080/ws"
	GroupCount  = 200 // ⚠️ Each group is two members, one chat and RaceCallers invites.
	RaceCallers = 10  // Concurrent invites of the same member into the same chat
	MsgCount    = 20  // Messages per member
)

type result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MemberID  int    `json:"memberId"`
	RequestID int    `json:"requestId"`
	ChatID    int    `json:"chatId"`
}

var (
	secret      []byte
	invitesOK   atomic.Int64
	invitesDup  atomic.Int64
	notified    atomic.Int64
	brokenRaces atomic.Int64
)

func main() {
	secret = []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		log.Fatal("❌ JWT_SECRET is not set")
	}

	log.Infof("🔥 STARTING STRESS TEST: %d groups, %d racing invites each...", GroupCount, RaceCallers)
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < GroupCount; i++ {
		wg.Add(1)
		go func(groupID int) {
			defer wg.Done()
			runGroup(groupID)
		}(i)
	}
	wg.Wait()

	log.Info("✅ LOAD TEST COMPLETE",
		"elapsed", time.Since(start),
		"invites", invitesOK.Load(),
		"duplicates", invitesDup.Load(),
		"notified", notified.Load(),
		"brokenRaces", brokenRaces.Load())
	if brokenRaces.Load() > 0 {
		os.Exit(1)
	}
}

func runGroup(groupID int) {
	run := time.Now().UnixNano()
	emailA := fmt.Sprintf("owner_%d_%d@load.test", groupID, run)
	emailB := fmt.Sprintf("guest_%d_%d@load.test", groupID, run)

	tokenA, _ := register(emailA)
	tokenB, idB := register(emailB)
	if tokenA == "" || tokenB == "" {
		return
	}

	// 1. A and B become verified contacts
	req, err := call(tokenA, http.MethodPost, "/api/contacts", map[string]int{"memberId": idB})
	if err != nil {
		log.Error("❌ Contact request failed", "group", groupID, "err", err)
		return
	}
	if _, err := call(tokenB, http.MethodPost, fmt.Sprintf("/api/contacts/%d/accept", req.RequestID), nil); err != nil {
		log.Error("❌ Contact accept failed", "group", groupID, "err", err)
		return
	}

	// 2. B listens for the added-to-chat event on its device
	device := fmt.Sprintf("device_%d_%d", groupID, run)
	if _, err := call(tokenB, http.MethodPut, "/api/push-token", map[string]string{"token": device}); err != nil {
		log.Error("❌ Push token failed", "group", groupID, "err", err)
		return
	}
	var listen sync.WaitGroup
	listen.Add(1)
	go awaitNotification(&listen, tokenB, device)

	chat, err := call(tokenA, http.MethodPost, "/api/chats", map[string]string{"name": fmt.Sprintf("room_%d", groupID)})
	if err != nil {
		log.Error("❌ Create chat failed", "group", groupID, "err", err)
		return
	}

	// 3. Race the same invite; exactly one may win
	var race sync.WaitGroup
	var winners atomic.Int64
	for i := 0; i < RaceCallers; i++ {
		race.Add(1)
		go func() {
			defer race.Done()
			res, err := call(tokenA, http.MethodPut, fmt.Sprintf("/api/chats/%d/members", chat.ChatID), map[string]string{"email": emailB})
			switch {
			case err == nil:
				winners.Add(1)
				invitesOK.Add(1)
			case res != nil && !res.Success:
				invitesDup.Add(1)
			default:
				log.Error("❌ Invite failed", "group", groupID, "err", err)
			}
		}()
	}
	race.Wait()
	if winners.Load() != 1 {
		brokenRaces.Add(1)
		log.Error("❌ Invite race broken", "group", groupID, "winners", winners.Load())
	}

	// 4. Both sides talk
	for i := 0; i < MsgCount; i++ {
		for _, tok := range []string{tokenA, tokenB} {
			if _, err := call(tok, http.MethodPost, fmt.Sprintf("/api/chats/%d/messages", chat.ChatID),
				map[string]string{"content": fmt.Sprintf("LoadTest Msg %d", i)}); err != nil {
				log.Error("❌ Send failed", "group", groupID, "err", err)
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	listen.Wait()
}

// register creates the member and mints the token the external auth service
// would have issued.
func register(email string) (string, int) {
	res, err := call("", http.MethodPost, "/register", map[string]string{
		"email":    email,
		"username": email,
		"password": "password123",
	})
	if err != nil {
		log.Error("❌ Register failed", "email", email, "err", err)
		return "", 0
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    res.MemberID,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		log.Error("❌ Sign token failed", "err", err)
		return "", 0
	}
	return signed, res.MemberID
}

func awaitNotification(wg *sync.WaitGroup, token, device string) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("%s?token=%s&device=%s", WSURL, token, device), nil)
	if err != nil {
		log.Error("❌ WS connect failed", "device", device, "err", err)
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		log.Warn("no notification received", "device", device, "err", err)
		return
	}
	notified.Add(1)
}

// call sends a JSON request and decodes the result envelope. A non-success
// envelope is returned alongside an error.
func call(token, method, endpoint string, data any) (*result, error) {
	var body bytes.Buffer
	if data != nil {
		if err := json.NewEncoder(&body).Encode(data); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(method, BaseURL+endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%s %s: status %d: %w", method, endpoint, resp.StatusCode, err)
	}
	if !res.Success {
		return &res, fmt.Errorf("%s %s: %s", method, endpoint, res.Message)
	}
	return &res, nil
}
