package contact

import "errors"

var (
	ErrExists   = errors.New("contact already exists")
	ErrNotFound = errors.New("contact request not found")
)

// Contact is a directed request edge: MemberA proposed to MemberB. Once
// Verified the pair is treated as undirected.
type Contact struct {
	ID       int  `json:"requestId"`
	MemberA  int  `json:"memberIdA"`
	MemberB  int  `json:"memberIdB"`
	Verified bool `json:"verified"`
}

// Entry is a contact as seen from one member's side.
type Entry struct {
	RequestID int    `json:"requestId"`
	MemberID  int    `json:"memberId"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Verified  bool   `json:"verified"`
	Outgoing  bool   `json:"outgoing"`
}

type RequestContactRequest struct {
	MemberID int `json:"memberId"`
}
