package chat

import "errors"

var (
	ErrChatNotFound  = errors.New("chat not found")
	ErrAlreadyMember = errors.New("member already in chat")
	ErrNotMember     = errors.New("member not in chat")
)

// Chat's owner is fixed at creation and never transferred.
type Chat struct {
	ID         int    `json:"chatId"`
	Name       string `json:"name"`
	OwnerEmail string `json:"ownerEmail"`
}

type Membership struct {
	ChatID   int `json:"chatId"`
	MemberID int `json:"memberId"`
}

type Message struct {
	ID        int    `json:"id"`
	ChatID    int    `json:"chatId"`
	MemberID  int    `json:"memberId"`
	Email     string `json:"email"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type CreateChatRequest struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	Email string `json:"email"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

// MemberResult echoes the affected membership. Warning is set when the
// change committed but its notification could not be delivered.
type MemberResult struct {
	ChatID  int
	Email   string
	Warning string
}
