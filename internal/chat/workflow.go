package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"group-chat/internal/apperr"
	"group-chat/internal/flow"
	"group-chat/internal/member"
	myMiddleware "group-chat/internal/middleware"
	"group-chat/internal/notify"

	"github.com/charmbracelet/log"
)

const historyLimit = 50

type Store interface {
	CreateChat(ctx context.Context, name string, ownerID int, ownerEmail string) (*Chat, error)
	GetChat(ctx context.Context, chatID int) (*Chat, error)
	IsMember(ctx context.Context, chatID, memberID int) (bool, error)
	AddMember(ctx context.Context, chatID, memberID int) error
	RemoveMember(ctx context.Context, chatID, memberID int) (*Membership, error)
	DeleteChat(ctx context.Context, chatID int) error
	ListMembers(ctx context.Context, chatID int) ([]string, error)
	ListChatsForMember(ctx context.Context, memberID int) ([]Chat, error)
	SaveMessage(ctx context.Context, chatID, memberID int, content string) (*Message, error)
	RecentMessages(ctx context.Context, chatID, limit int) ([]Message, error)
}

type Members interface {
	GetByEmail(ctx context.Context, email string) (*member.Member, error)
	GetByID(ctx context.Context, id int) (*member.Member, error)
}

type Contacts interface {
	AreVerifiedContacts(ctx context.Context, memberA, memberB int) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, memberID int, ev notify.Event) error
}

// Service runs the chat membership workflows. Each operation is a fixed
// chain of guards; the first failing guard decides the error.
type Service struct {
	store    Store
	members  Members
	contacts Contacts
	notifier Notifier
}

func NewService(store Store, members Members, contacts Contacts, notifier Notifier) *Service {
	return &Service{store: store, members: members, contacts: contacts, notifier: notifier}
}

// state is what the guards of one operation resolve, step by step.
type state struct {
	caller myMiddleware.Identity

	rawChatID   string
	targetEmail string

	chatID   int
	chat     *Chat
	targetID int
	verified bool
}

func (s *Service) CreateChat(ctx context.Context, caller myMiddleware.Identity, name string) (*Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("Missing required information")
	}
	c, err := s.store.CreateChat(ctx, name, caller.MemberID, caller.Email)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return c, nil
}

func (s *Service) AddMember(ctx context.Context, caller myMiddleware.Identity, chatID, email string) (*MemberResult, error) {
	st := &state{caller: caller, rawChatID: chatID, targetEmail: email}
	res := &MemberResult{}
	err := flow.Run(ctx, st,
		requireChatIDAndEmail,
		s.loadChat,
		requireOwner,
		s.resolveTarget,
		s.requireVerifiedContact,
		s.requireNotMember,
		// Insert and notify share a step: once the row commits, nothing
		// after it may turn the result into a failure.
		func(ctx context.Context, st *state) error {
			err := s.store.AddMember(ctx, st.chatID, st.targetID)
			if errors.Is(err, ErrAlreadyMember) {
				return apperr.New(apperr.KindAlreadyMember, "user already joined")
			}
			if err != nil {
				return apperr.Storage(err)
			}
			res.ChatID, res.Email = st.chatID, st.targetEmail

			ev := notify.AddedToChat(st.chatID, st.chat.Name, st.caller.Email)
			if err := s.notifier.Notify(ctx, st.targetID, ev); err != nil {
				log.Warn("added-to-chat notification failed", "chat", st.chatID, "member", st.targetID, "err", err)
				res.Warning = apperr.As(err).Message
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) RemoveMember(ctx context.Context, caller myMiddleware.Identity, chatID, email string) (*MemberResult, error) {
	st := &state{caller: caller, rawChatID: chatID, targetEmail: email}
	res := &MemberResult{}
	err := flow.Run(ctx, st,
		requireChatIDAndEmail,
		s.loadChat,
		s.resolveTarget,
		s.requireTargetMember,
		func(_ context.Context, st *state) error {
			if !CanRemove(st.chat, st.caller.Email, st.targetEmail) {
				return apperr.Unauthorized("User is not owner of chat room")
			}
			return nil
		},
		func(ctx context.Context, st *state) error {
			m, err := s.store.RemoveMember(ctx, st.chatID, st.targetID)
			if errors.Is(err, ErrNotMember) {
				return apperr.New(apperr.KindNotMember, "user not in chat")
			}
			if err != nil {
				return apperr.Storage(err)
			}
			res.ChatID, res.Email = m.ChatID, st.targetEmail
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) DeleteChat(ctx context.Context, caller myMiddleware.Identity, chatID string) (int, error) {
	st := &state{caller: caller, rawChatID: chatID}
	err := flow.Run(ctx, st,
		requireChatID,
		s.loadChat,
		func(_ context.Context, st *state) error {
			if !CanDelete(st.chat, st.caller.Email) {
				return apperr.Unauthorized("User is not owner of chat room")
			}
			return nil
		},
		func(ctx context.Context, st *state) error {
			err := s.store.DeleteChat(ctx, st.chatID)
			if errors.Is(err, ErrChatNotFound) {
				return apperr.NotFound("Chat ID not found")
			}
			if err != nil {
				return apperr.Storage(err)
			}
			return nil
		},
	)
	if err != nil {
		return 0, err
	}
	return st.chatID, nil
}

func (s *Service) ListMembers(ctx context.Context, chatID string) ([]string, error) {
	st := &state{rawChatID: chatID}
	var emails []string
	err := flow.Run(ctx, st,
		requireChatID,
		s.loadChat,
		func(ctx context.Context, st *state) error {
			var err error
			if emails, err = s.store.ListMembers(ctx, st.chatID); err != nil {
				return apperr.Storage(err)
			}
			return nil
		},
	)
	return emails, err
}

func (s *Service) ListChatsForMember(ctx context.Context, caller myMiddleware.Identity) ([]Chat, error) {
	st := &state{caller: caller}
	var chats []Chat
	err := flow.Run(ctx, st,
		func(ctx context.Context, st *state) error {
			_, err := s.members.GetByID(ctx, st.caller.MemberID)
			if errors.Is(err, member.ErrNotFound) {
				return apperr.NotFound("Member Not Found")
			}
			if err != nil {
				return apperr.Storage(err)
			}
			return nil
		},
		func(ctx context.Context, st *state) error {
			var err error
			if chats, err = s.store.ListChatsForMember(ctx, st.caller.MemberID); err != nil {
				return apperr.Storage(err)
			}
			return nil
		},
	)
	return chats, err
}

func (s *Service) SendMessage(ctx context.Context, caller myMiddleware.Identity, chatID, content string) (*Message, error) {
	st := &state{caller: caller, rawChatID: chatID}
	var msg *Message
	err := flow.Run(ctx, st,
		requireChatID,
		func(_ context.Context, _ *state) error {
			if strings.TrimSpace(content) == "" {
				return apperr.InvalidInput("Missing required information")
			}
			return nil
		},
		s.loadChat,
		s.requireCallerMember,
		func(ctx context.Context, st *state) error {
			var err error
			if msg, err = s.store.SaveMessage(ctx, st.chatID, st.caller.MemberID, content); err != nil {
				return apperr.Storage(err)
			}
			msg.Email = st.caller.Email
			return nil
		},
	)
	return msg, err
}

func (s *Service) History(ctx context.Context, caller myMiddleware.Identity, chatID string) ([]Message, error) {
	st := &state{caller: caller, rawChatID: chatID}
	var msgs []Message
	err := flow.Run(ctx, st,
		requireChatID,
		s.loadChat,
		s.requireCallerMember,
		func(ctx context.Context, st *state) error {
			var err error
			if msgs, err = s.store.RecentMessages(ctx, st.chatID, historyLimit); err != nil {
				return apperr.Storage(err)
			}
			return nil
		},
	)
	return msgs, err
}

// Guards shared across operations.

func requireChatID(_ context.Context, st *state) error {
	if st.rawChatID == "" {
		return apperr.InvalidInput("Missing required information")
	}
	id, err := strconv.Atoi(st.rawChatID)
	if err != nil {
		return apperr.InvalidInput("Malformed parameter. chatId must be a number")
	}
	st.chatID = id
	return nil
}

func requireChatIDAndEmail(ctx context.Context, st *state) error {
	if st.rawChatID == "" || st.targetEmail == "" {
		return apperr.InvalidInput("Missing required information")
	}
	return requireChatID(ctx, st)
}

func requireOwner(_ context.Context, st *state) error {
	if !IsOwner(st.chat, st.caller.Email) {
		return apperr.Unauthorized("User is not owner of chat room")
	}
	return nil
}

func (s *Service) loadChat(ctx context.Context, st *state) error {
	c, err := s.store.GetChat(ctx, st.chatID)
	if errors.Is(err, ErrChatNotFound) {
		return apperr.NotFound("Chat ID not found")
	}
	if err != nil {
		return apperr.Storage(err)
	}
	st.chat = c
	return nil
}

func (s *Service) resolveTarget(ctx context.Context, st *state) error {
	m, err := s.members.GetByEmail(ctx, st.targetEmail)
	if errors.Is(err, member.ErrNotFound) {
		return apperr.NotFound("email not found")
	}
	if err != nil {
		return apperr.Storage(err)
	}
	st.targetID = m.ID
	return nil
}

func (s *Service) requireVerifiedContact(ctx context.Context, st *state) error {
	verified, err := s.contacts.AreVerifiedContacts(ctx, st.caller.MemberID, st.targetID)
	if err != nil {
		return apperr.Storage(err)
	}
	st.verified = verified
	if !CanInvite(st.chat, st.caller.Email, st.caller.MemberID, st.targetID, func(int, int) bool { return st.verified }) {
		return apperr.Forbidden("not in contact list")
	}
	return nil
}

func (s *Service) requireNotMember(ctx context.Context, st *state) error {
	in, err := s.store.IsMember(ctx, st.chatID, st.targetID)
	if err != nil {
		return apperr.Storage(err)
	}
	if in {
		return apperr.New(apperr.KindAlreadyMember, "user already joined")
	}
	return nil
}

func (s *Service) requireTargetMember(ctx context.Context, st *state) error {
	in, err := s.store.IsMember(ctx, st.chatID, st.targetID)
	if err != nil {
		return apperr.Storage(err)
	}
	if !in {
		return apperr.New(apperr.KindNotMember, "user not in chat")
	}
	return nil
}

func (s *Service) requireCallerMember(ctx context.Context, st *state) error {
	in, err := s.store.IsMember(ctx, st.chatID, st.caller.MemberID)
	if err != nil {
		return apperr.Storage(err)
	}
	if !in {
		return apperr.New(apperr.KindNotMember, "user not in chat")
	}
	return nil
}
