package contact

import (
	"context"
	"errors"
	"strconv"

	"group-chat/internal/apperr"
	"group-chat/internal/flow"
	"group-chat/internal/member"
	myMiddleware "group-chat/internal/middleware"
	"group-chat/internal/notify"

	"github.com/charmbracelet/log"
)

type Members interface {
	GetByID(ctx context.Context, id int) (*member.Member, error)
}

type Notifier interface {
	Notify(ctx context.Context, memberID int, ev notify.Event) error
}

type Service struct {
	ledger   *Repository
	members  Members
	notifier Notifier
}

func NewService(ledger *Repository, members Members, notifier Notifier) *Service {
	return &Service{ledger: ledger, members: members, notifier: notifier}
}

type AcceptResult struct {
	RequestID int
	Warning   string
}

// state accumulates what each contact step resolves.
type state struct {
	caller    myMiddleware.Identity
	rawID     string
	targetID  int
	request   *Contact
	requestID int
}

func (s *Service) RequestContact(ctx context.Context, caller myMiddleware.Identity, targetID int) (*Contact, error) {
	st := &state{caller: caller, targetID: targetID}
	var created *Contact
	err := flow.Run(ctx, st,
		func(_ context.Context, st *state) error {
			if st.targetID <= 0 {
				return apperr.InvalidInput("Missing required information")
			}
			if st.targetID == st.caller.MemberID {
				return apperr.InvalidInput("cannot add yourself as a contact")
			}
			return nil
		},
		s.memberExists,
		func(ctx context.Context, st *state) error {
			c, err := s.ledger.Request(ctx, st.caller.MemberID, st.targetID)
			if errors.Is(err, ErrExists) {
				return apperr.New(apperr.KindAlreadyExists, "contact already exists")
			}
			if err != nil {
				return apperr.Storage(err)
			}
			created = c
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AcceptContact verifies a pending request addressed to the caller and tells
// the requester. A failed notification does not undo the acceptance.
func (s *Service) AcceptContact(ctx context.Context, caller myMiddleware.Identity, requestID string) (*AcceptResult, error) {
	st := &state{caller: caller, rawID: requestID}
	res := &AcceptResult{}
	err := flow.Run(ctx, st,
		parseRequestID,
		func(ctx context.Context, st *state) error {
			c, err := s.ledger.Get(ctx, st.requestID)
			if errors.Is(err, ErrNotFound) {
				return apperr.NotFound("contact request not found")
			}
			if err != nil {
				return apperr.Storage(err)
			}
			st.request = c
			return nil
		},
		func(_ context.Context, st *state) error {
			if st.request.MemberB != st.caller.MemberID {
				return apperr.Forbidden("contact request is not addressed to caller")
			}
			return nil
		},
		func(ctx context.Context, st *state) error {
			res.RequestID = st.requestID
			if st.request.Verified {
				return nil
			}
			if err := s.ledger.Accept(ctx, st.requestID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return apperr.NotFound("contact request not found")
				}
				return apperr.Storage(err)
			}
			if err := s.notifier.Notify(ctx, st.request.MemberA, notify.ContactAccepted(st.caller.Email)); err != nil {
				log.Warn("contact accepted notification failed", "request", st.requestID, "member", st.request.MemberA, "err", err)
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

func (s *Service) RemoveContact(ctx context.Context, caller myMiddleware.Identity, otherID string) error {
	st := &state{caller: caller, rawID: otherID}
	return flow.Run(ctx, st,
		func(_ context.Context, st *state) error {
			id, err := strconv.Atoi(st.rawID)
			if err != nil || id <= 0 {
				return apperr.InvalidInput("Malformed parameter. memberId must be a number")
			}
			st.targetID = id
			return nil
		},
		func(ctx context.Context, st *state) error {
			if err := s.ledger.Remove(ctx, st.caller.MemberID, st.targetID); err != nil {
				return apperr.Storage(err)
			}
			return nil
		},
	)
}

func (s *Service) List(ctx context.Context, caller myMiddleware.Identity) ([]Entry, error) {
	entries, err := s.ledger.ListForMember(ctx, caller.MemberID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return entries, nil
}

func (s *Service) memberExists(ctx context.Context, st *state) error {
	_, err := s.members.GetByID(ctx, st.targetID)
	if errors.Is(err, member.ErrNotFound) {
		return apperr.NotFound("Member Not Found")
	}
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func parseRequestID(_ context.Context, st *state) error {
	if st.rawID == "" {
		return apperr.InvalidInput("Missing required information")
	}
	id, err := strconv.Atoi(st.rawID)
	if err != nil {
		return apperr.InvalidInput("Malformed parameter. requestId must be a number")
	}
	st.requestID = id
	return nil
}
