package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"group-chat/internal/apperr"
	"group-chat/internal/member"
	myMiddleware "group-chat/internal/middleware"
	"group-chat/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = myMiddleware.Identity{MemberID: 1, Email: "a@x.com"}
	bob   = myMiddleware.Identity{MemberID: 2, Email: "b@x.com"}
	carol = myMiddleware.Identity{MemberID: 3, Email: "c@x.com"}
	dave  = myMiddleware.Identity{MemberID: 4, Email: "d@x.com"}
)

type engine struct {
	svc      *Service
	store    *memStore
	members  *fakeMembers
	contacts *fakeContacts
	notifier *fakeNotifier
}

// newEngine seeds four members. A and B are verified contacts, A and D have
// a pending request, C knows nobody. Chat ids start at 10.
func newEngine() *engine {
	members := newFakeMembers(
		member.Member{ID: alice.MemberID, Email: alice.Email, Username: "alice"},
		member.Member{ID: bob.MemberID, Email: bob.Email, Username: "bob"},
		member.Member{ID: carol.MemberID, Email: carol.Email, Username: "carol"},
		member.Member{ID: dave.MemberID, Email: dave.Email, Username: "dave"},
	)
	e := &engine{
		store:    newMemStore(members, 10),
		members:  members,
		contacts: &fakeContacts{verified: map[[2]int]bool{pair(1, 2): true, pair(1, 4): false}},
		notifier: &fakeNotifier{},
	}
	e.svc = NewService(e.store, e.members, e.contacts, e.notifier)
	return e
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "got %v", err)
}

func TestOwnerInvitesVerifiedContact(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	c, err := e.svc.CreateChat(ctx, alice, "room")
	require.NoError(t, err)
	assert.Equal(t, 10, c.ID)
	assert.Equal(t, alice.Email, c.OwnerEmail)

	res, err := e.svc.AddMember(ctx, alice, "10", bob.Email)
	require.NoError(t, err)
	assert.Equal(t, 10, res.ChatID)
	assert.Equal(t, bob.Email, res.Email)
	assert.Empty(t, res.Warning)

	emails, err := e.svc.ListMembers(ctx, "10")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{alice.Email, bob.Email}, emails)

	require.Len(t, e.notifier.sent[bob.MemberID], 1)
	ev := e.notifier.sent[bob.MemberID][0]
	assert.Equal(t, notify.KindAddedToChat, ev.Kind)
	assert.Equal(t, 10, ev.ChatID)
	assert.Equal(t, "room", ev.ChatName)
	assert.Equal(t, alice.Email, ev.OwnerEmail)

	_, err = e.svc.AddMember(ctx, alice, "10", bob.Email)
	assertKind(t, err, apperr.KindAlreadyMember)

	res, err = e.svc.RemoveMember(ctx, bob, "10", bob.Email)
	require.NoError(t, err)
	assert.Equal(t, 10, res.ChatID)

	emails, err = e.svc.ListMembers(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, []string{alice.Email}, emails)

	id, err := e.svc.DeleteChat(ctx, alice, "10")
	require.NoError(t, err)
	assert.Equal(t, 10, id)

	_, err = e.svc.ListMembers(ctx, "10")
	assertKind(t, err, apperr.KindNotFound)
}

func TestOwnerCannotInviteStranger(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	_, err := e.svc.CreateChat(ctx, alice, "room")
	require.NoError(t, err)

	_, err = e.svc.AddMember(ctx, alice, "10", carol.Email)
	assertKind(t, err, apperr.KindForbidden)
	assert.Equal(t, "not in contact list", apperr.As(err).Message)

	emails, err := e.svc.ListMembers(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, []string{alice.Email}, emails)
	assert.Empty(t, e.notifier.sent)
}

func TestAddMemberPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		caller  myMiddleware.Identity
		chatID  string
		email   string
		kind    apperr.Kind
		message string
	}{
		{"missing chat id", alice, "", bob.Email, apperr.KindInvalidInput, "Missing required information"},
		{"missing email", alice, "10", "", apperr.KindInvalidInput, "Missing required information"},
		{"non numeric chat id", alice, "ten", bob.Email, apperr.KindInvalidInput, "Malformed parameter. chatId must be a number"},
		{"unknown chat", alice, "99", bob.Email, apperr.KindNotFound, "Chat ID not found"},
		{"caller not owner", bob, "10", carol.Email, apperr.KindUnauthorized, "User is not owner of chat room"},
		{"unknown email", alice, "10", "ghost@x.com", apperr.KindNotFound, "email not found"},
		{"no contact", alice, "10", carol.Email, apperr.KindForbidden, "not in contact list"},
		{"pending contact", alice, "10", dave.Email, apperr.KindForbidden, "not in contact list"},
		{"owner invites self", alice, "10", alice.Email, apperr.KindForbidden, "not in contact list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine()
			_, err := e.svc.CreateChat(context.Background(), alice, "room")
			require.NoError(t, err)
			before := e.store.membershipCount()

			_, err = e.svc.AddMember(context.Background(), tt.caller, tt.chatID, tt.email)
			assertKind(t, err, tt.kind)
			assert.Equal(t, tt.message, apperr.As(err).Message)
			assert.Equal(t, before, e.store.membershipCount())
			assert.Empty(t, e.notifier.sent)
		})
	}
}

func TestAddMemberGuardOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed id never reaches storage", func(t *testing.T) {
		e := newEngine()
		_, err := e.svc.AddMember(ctx, alice, "ten", "ghost@x.com")
		assertKind(t, err, apperr.KindInvalidInput)
		assert.Empty(t, e.store.calls)
		assert.Zero(t, e.members.lookups.Load())
	})

	t.Run("missing chat reported before unknown email", func(t *testing.T) {
		e := newEngine()
		_, err := e.svc.AddMember(ctx, alice, "99", "ghost@x.com")
		assertKind(t, err, apperr.KindNotFound)
		assert.Equal(t, "Chat ID not found", apperr.As(err).Message)
	})

	t.Run("non owner learns nothing about the target", func(t *testing.T) {
		e := newEngine()
		_, err := e.svc.CreateChat(ctx, alice, "room")
		require.NoError(t, err)

		_, err = e.svc.AddMember(ctx, bob, "10", "ghost@x.com")
		assertKind(t, err, apperr.KindUnauthorized)
		assert.Zero(t, e.members.lookups.Load())
	})

	t.Run("contact check precedes membership check", func(t *testing.T) {
		e := newEngine()
		_, err := e.svc.CreateChat(ctx, alice, "room")
		require.NoError(t, err)
		require.NoError(t, e.store.AddMember(ctx, 10, carol.MemberID))

		_, err = e.svc.AddMember(ctx, alice, "10", carol.Email)
		assertKind(t, err, apperr.KindForbidden)
	})
}

func TestAddMemberStorageFailureKeepsDetail(t *testing.T) {
	e := newEngine()
	_, err := e.svc.CreateChat(context.Background(), alice, "room")
	require.NoError(t, err)
	e.store.fail["GetChat"] = errors.New("connection refused")

	_, err = e.svc.AddMember(context.Background(), alice, "10", bob.Email)
	assertKind(t, err, apperr.KindStorage)
	assert.Equal(t, "SQL Error", apperr.As(err).Message)
	assert.Contains(t, apperr.As(err).Detail(), "connection refused")
}

func TestAddMemberNotificationFailureIsSoft(t *testing.T) {
	e := newEngine()
	e.notifier.err = errors.New("no route to host")
	ctx := context.Background()
	_, err := e.svc.CreateChat(ctx, alice, "room")
	require.NoError(t, err)

	res, err := e.svc.AddMember(ctx, alice, "10", bob.Email)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warning)

	in, err := e.store.IsMember(ctx, 10, bob.MemberID)
	require.NoError(t, err)
	assert.True(t, in, "membership stays committed")
}

func TestAddMemberCancelledAfterInsertStillSucceeds(t *testing.T) {
	e := newEngine()
	_, err := e.svc.CreateChat(context.Background(), alice, "room")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.store.afterAdd = cancel

	res, err := e.svc.AddMember(ctx, alice, "10", bob.Email)
	require.NoError(t, err)
	assert.Equal(t, 10, res.ChatID)
	assert.Equal(t, bob.Email, res.Email)
	assert.NotEmpty(t, res.Warning)
	assert.Empty(t, e.notifier.sent)

	in, err := e.store.IsMember(context.Background(), 10, bob.MemberID)
	require.NoError(t, err)
	assert.True(t, in)
}

func TestAddMemberInsertRaceMapsToAlreadyMember(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	_, err := e.svc.CreateChat(ctx, alice, "room")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.AddMember(ctx, alice, "10", bob.Email)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assertKind(t, err, apperr.KindAlreadyMember)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 2, e.store.membershipCount())
}

func TestRemoveMember(t *testing.T) {
	tests := []struct {
		name   string
		caller myMiddleware.Identity
		chatID string
		email  string
		kind   apperr.Kind
	}{
		{"missing email", alice, "10", "", apperr.KindInvalidInput},
		{"non numeric chat id", alice, "x", bob.Email, apperr.KindInvalidInput},
		{"unknown chat", alice, "99", bob.Email, apperr.KindNotFound},
		{"unknown email", alice, "10", "ghost@x.com", apperr.KindNotFound},
		{"target not in chat", alice, "10", carol.Email, apperr.KindNotMember},
		{"membership checked before authority", bob, "10", carol.Email, apperr.KindNotMember},
		{"member removes owner", bob, "10", alice.Email, apperr.KindUnauthorized},
		{"outsider removes member", carol, "10", bob.Email, apperr.KindUnauthorized},
		{"owner removes member", alice, "10", bob.Email, ""},
		{"member leaves", bob, "10", bob.Email, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine()
			ctx := context.Background()
			_, err := e.svc.CreateChat(ctx, alice, "room")
			require.NoError(t, err)
			_, err = e.svc.AddMember(ctx, alice, "10", bob.Email)
			require.NoError(t, err)

			res, err := e.svc.RemoveMember(ctx, tt.caller, tt.chatID, tt.email)
			if tt.kind != "" {
				assertKind(t, err, tt.kind)
				assert.Equal(t, 2, e.store.membershipCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 10, res.ChatID)
			assert.Equal(t, tt.email, res.Email)
			assert.Equal(t, 1, e.store.membershipCount())
		})
	}
}

func TestOwnerLeavingKeepsOwnership(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	_, err := e.svc.CreateChat(ctx, alice, "room")
	require.NoError(t, err)

	_, err = e.svc.RemoveMember(ctx, alice, "10", alice.Email)
	require.NoError(t, err)

	c, err := e.store.GetChat(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, c.OwnerEmail)

	id, err := e.svc.DeleteChat(ctx, alice, "10")
	require.NoError(t, err)
	assert.Equal(t, 10, id)
}

func TestDeleteChat(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		e := newEngine()
		_, err := e.svc.DeleteChat(ctx, alice, "")
		assertKind(t, err, apperr.KindInvalidInput)
		_, err = e.svc.DeleteChat(ctx, alice, "abc")
		assertKind(t, err, apperr.KindInvalidInput)
		_, err = e.svc.DeleteChat(ctx, alice, "99")
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("non owner", func(t *testing.T) {
		e := newEngine()
		_, err := e.svc.CreateChat(ctx, alice, "room")
		require.NoError(t, err)
		_, err = e.svc.AddMember(ctx, alice, "10", bob.Email)
		require.NoError(t, err)

		_, err = e.svc.DeleteChat(ctx, bob, "10")
		assertKind(t, err, apperr.KindUnauthorized)
		_, err = e.store.GetChat(ctx, 10)
		assert.NoError(t, err)
	})

	t.Run("owner removes everything", func(t *testing.T) {
		e := newEngine()
		_, err := e.svc.CreateChat(ctx, alice, "room")
		require.NoError(t, err)
		_, err = e.svc.AddMember(ctx, alice, "10", bob.Email)
		require.NoError(t, err)
		_, err = e.svc.SendMessage(ctx, bob, "10", "hello")
		require.NoError(t, err)

		_, err = e.svc.DeleteChat(ctx, alice, "10")
		require.NoError(t, err)

		chats, err := e.svc.ListChatsForMember(ctx, bob)
		require.NoError(t, err)
		assert.Empty(t, chats)
		assert.Zero(t, e.store.membershipCount())
		assert.Empty(t, e.store.messages)
	})

	t.Run("storage failure", func(t *testing.T) {
		e := newEngine()
		_, err := e.svc.CreateChat(ctx, alice, "room")
		require.NoError(t, err)
		e.store.fail["DeleteChat"] = errors.New("deadlock detected")

		_, err = e.svc.DeleteChat(ctx, alice, "10")
		assertKind(t, err, apperr.KindStorage)
		_, err = e.store.GetChat(ctx, 10)
		assert.NoError(t, err)
	})
}

func TestListChatsForMember(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	_, err := e.svc.ListChatsForMember(ctx, myMiddleware.Identity{MemberID: 42, Email: "ghost@x.com"})
	assertKind(t, err, apperr.KindNotFound)

	chats, err := e.svc.ListChatsForMember(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, chats)

	_, err = e.svc.CreateChat(ctx, alice, "one")
	require.NoError(t, err)
	_, err = e.svc.CreateChat(ctx, alice, "two")
	require.NoError(t, err)
	_, err = e.svc.AddMember(ctx, alice, "11", bob.Email)
	require.NoError(t, err)

	chats, err = e.svc.ListChatsForMember(ctx, bob)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, 11, chats[0].ID)

	chats, err = e.svc.ListChatsForMember(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, chats, 2)
}

func TestCreateChat(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	_, err := e.svc.CreateChat(ctx, alice, "   ")
	assertKind(t, err, apperr.KindInvalidInput)

	e.store.fail["CreateChat"] = errors.New("disk full")
	_, err = e.svc.CreateChat(ctx, alice, "room")
	assertKind(t, err, apperr.KindStorage)
}

func TestMessagesRequireMembership(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	_, err := e.svc.CreateChat(ctx, alice, "room")
	require.NoError(t, err)

	_, err = e.svc.SendMessage(ctx, carol, "10", "hi")
	assertKind(t, err, apperr.KindNotMember)
	_, err = e.svc.History(ctx, carol, "10")
	assertKind(t, err, apperr.KindNotMember)
	_, err = e.svc.SendMessage(ctx, alice, "10", " ")
	assertKind(t, err, apperr.KindInvalidInput)

	msg, err := e.svc.SendMessage(ctx, alice, "10", "first")
	require.NoError(t, err)
	assert.Equal(t, alice.Email, msg.Email)
	_, err = e.svc.SendMessage(ctx, alice, "10", "second")
	require.NoError(t, err)

	history, err := e.svc.History(ctx, alice, "10")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Content)
}

func TestCanceledContextStopsWorkflow(t *testing.T) {
	e := newEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.svc.AddMember(ctx, alice, "10", bob.Email)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.store.calls)
}
