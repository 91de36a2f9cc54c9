package member

import "errors"

var (
	ErrNotFound = errors.New("member not found")
	ErrExists   = errors.New("email or username already registered")
)

type Member struct {
	ID       int    `json:"memberId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"-"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}
