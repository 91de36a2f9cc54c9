package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"group-chat/internal/db"
)

// Repository is the Chat Store: the only writer of chats, chat_members and
// messages rows.
type Repository struct {
	db *sql.DB
}

func NewRepository(database *db.Database) *Repository {
	return &Repository{db: database.Conn}
}

// CreateChat inserts the chat and its owner's membership in one transaction.
func (r *Repository) CreateChat(ctx context.Context, name string, ownerID int, ownerEmail string) (*Chat, error) {
	c := &Chat{Name: name, OwnerEmail: ownerEmail}
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"INSERT INTO chats (name, owner_email) VALUES ($1, $2) RETURNING id",
			name, ownerEmail).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chat_members (chat_id, member_id) VALUES ($1, $2)", c.ID, ownerID); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) GetChat(ctx context.Context, chatID int) (*Chat, error) {
	c := &Chat{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, owner_email FROM chats WHERE id = $1", chatID).
		Scan(&c.ID, &c.Name, &c.OwnerEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select chat: %w", err)
	}
	return c, nil
}

func (r *Repository) IsMember(ctx context.Context, chatID, memberID int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_members WHERE chat_id = $1 AND member_id = $2", chatID, memberID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

// AddMember relies on the (chat_id, member_id) key: of two racing inserts
// one affects a row, the other gets ErrAlreadyMember.
func (r *Repository) AddMember(ctx context.Context, chatID, memberID int) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_members (chat_id, member_id)
		VALUES ($1, $2)
		ON CONFLICT (chat_id, member_id) DO NOTHING
	`, chatID, memberID)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	if n == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (r *Repository) RemoveMember(ctx context.Context, chatID, memberID int) (*Membership, error) {
	m := &Membership{}
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM chat_members
		WHERE chat_id = $1 AND member_id = $2
		RETURNING chat_id, member_id
	`, chatID, memberID).Scan(&m.ChatID, &m.MemberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("delete membership: %w", err)
	}
	return m, nil
}

// DeleteChat removes messages, then memberships, then the chat row, all or
// nothing.
func (r *Repository) DeleteChat(ctx context.Context, chatID int) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = $1", chatID); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM chat_members WHERE chat_id = $1", chatID); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id = $1", chatID)
		if err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		if n == 0 {
			return ErrChatNotFound
		}
		return nil
	})
}

func (r *Repository) ListMembers(ctx context.Context, chatID int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.email
		FROM chat_members cm
		INNER JOIN members m ON cm.member_id = m.id
		WHERE cm.chat_id = $1
		ORDER BY m.id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (r *Repository) ListChatsForMember(ctx context.Context, memberID int) ([]Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.owner_email
		FROM chats c
		INNER JOIN chat_members cm ON cm.chat_id = c.id
		WHERE cm.member_id = $1
		ORDER BY c.id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerEmail); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (r *Repository) SaveMessage(ctx context.Context, chatID, memberID int, content string) (*Message, error) {
	msg := &Message{ChatID: chatID, MemberID: memberID, Content: content}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (chat_id, member_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, chatID, memberID, content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// RecentMessages returns up to limit messages, newest first.
func (r *Repository) RecentMessages(ctx context.Context, chatID, limit int) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT msg.id, msg.chat_id, msg.member_id, m.email, msg.content, msg.created_at
		FROM messages msg
		JOIN members m ON msg.member_id = m.id
		WHERE msg.chat_id = $1
		ORDER BY msg.id DESC
		LIMIT $2
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.MemberID, &msg.Email, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
