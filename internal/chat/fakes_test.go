package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"group-chat/internal/apperr"
	"group-chat/internal/member"
	"group-chat/internal/notify"
)

type fakeMembers struct {
	byEmail map[string]*member.Member
	lookups atomic.Int32
}

func newFakeMembers(ms ...member.Member) *fakeMembers {
	f := &fakeMembers{byEmail: map[string]*member.Member{}}
	for i := range ms {
		f.byEmail[ms[i].Email] = &ms[i]
	}
	return f
}

func (f *fakeMembers) GetByEmail(_ context.Context, email string) (*member.Member, error) {
	f.lookups.Add(1)
	m, ok := f.byEmail[email]
	if !ok {
		return nil, member.ErrNotFound
	}
	return m, nil
}

func (f *fakeMembers) GetByID(_ context.Context, id int) (*member.Member, error) {
	for _, m := range f.byEmail {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, member.ErrNotFound
}

func (f *fakeMembers) emailOf(id int) string {
	m, _ := f.GetByID(context.Background(), id)
	if m == nil {
		return ""
	}
	return m.Email
}

type fakeContacts struct {
	verified map[[2]int]bool
}

func pair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (f *fakeContacts) AreVerifiedContacts(_ context.Context, a, b int) (bool, error) {
	return f.verified[pair(a, b)], nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int][]notify.Event
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, memberID int, ev notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return apperr.Wrap(apperr.KindNotification, "notification dispatch failed", f.err)
	}
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindNotification, "notification dispatch failed", err)
	}
	if f.sent == nil {
		f.sent = map[int][]notify.Event{}
	}
	f.sent[memberID] = append(f.sent[memberID], ev)
	return nil
}

// memStore is an in-memory Store. fail makes the named method return the
// given error; calls records every method invoked, in order. afterAdd runs
// once a membership row has been stored.
type memStore struct {
	mu          sync.Mutex
	nextChatID  int
	nextMsgID   int
	chats       map[int]Chat
	memberships map[int]map[int]bool
	messages    map[int][]Message
	directory   *fakeMembers
	fail        map[string]error
	calls       []string
	afterAdd    func()
}

func newMemStore(directory *fakeMembers, firstChatID int) *memStore {
	return &memStore{
		nextChatID:  firstChatID,
		chats:       map[int]Chat{},
		memberships: map[int]map[int]bool{},
		messages:    map[int][]Message{},
		directory:   directory,
		fail:        map[string]error{},
	}
}

func (s *memStore) enter(op string) error {
	s.calls = append(s.calls, op)
	return s.fail[op]
}

func (s *memStore) CreateChat(_ context.Context, name string, ownerID int, ownerEmail string) (*Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateChat"); err != nil {
		return nil, err
	}
	c := Chat{ID: s.nextChatID, Name: name, OwnerEmail: ownerEmail}
	s.nextChatID++
	s.chats[c.ID] = c
	s.memberships[c.ID] = map[int]bool{ownerID: true}
	return &c, nil
}

func (s *memStore) GetChat(_ context.Context, chatID int) (*Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetChat"); err != nil {
		return nil, err
	}
	c, ok := s.chats[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}
	return &c, nil
}

func (s *memStore) IsMember(_ context.Context, chatID, memberID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("IsMember"); err != nil {
		return false, err
	}
	return s.memberships[chatID][memberID], nil
}

func (s *memStore) AddMember(_ context.Context, chatID, memberID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("AddMember"); err != nil {
		return err
	}
	if _, ok := s.chats[chatID]; !ok {
		return fmt.Errorf("foreign key violation: chat %d", chatID)
	}
	if s.memberships[chatID][memberID] {
		return ErrAlreadyMember
	}
	s.memberships[chatID][memberID] = true
	if s.afterAdd != nil {
		s.afterAdd()
	}
	return nil
}

func (s *memStore) RemoveMember(_ context.Context, chatID, memberID int) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("RemoveMember"); err != nil {
		return nil, err
	}
	if !s.memberships[chatID][memberID] {
		return nil, ErrNotMember
	}
	delete(s.memberships[chatID], memberID)
	return &Membership{ChatID: chatID, MemberID: memberID}, nil
}

func (s *memStore) DeleteChat(_ context.Context, chatID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteChat"); err != nil {
		return err
	}
	if _, ok := s.chats[chatID]; !ok {
		return ErrChatNotFound
	}
	delete(s.messages, chatID)
	delete(s.memberships, chatID)
	delete(s.chats, chatID)
	return nil
}

func (s *memStore) ListMembers(_ context.Context, chatID int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListMembers"); err != nil {
		return nil, err
	}
	emails := []string{}
	for id := range s.memberships[chatID] {
		emails = append(emails, s.directory.emailOf(id))
	}
	sort.Strings(emails)
	return emails, nil
}

func (s *memStore) ListChatsForMember(_ context.Context, memberID int) ([]Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListChatsForMember"); err != nil {
		return nil, err
	}
	chats := []Chat{}
	for id, set := range s.memberships {
		if set[memberID] {
			chats = append(chats, s.chats[id])
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].ID < chats[j].ID })
	return chats, nil
}

func (s *memStore) SaveMessage(_ context.Context, chatID, memberID int, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SaveMessage"); err != nil {
		return nil, err
	}
	s.nextMsgID++
	msg := Message{ID: s.nextMsgID, ChatID: chatID, MemberID: memberID, Content: content}
	s.messages[chatID] = append(s.messages[chatID], msg)
	return &msg, nil
}

func (s *memStore) RecentMessages(_ context.Context, chatID, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("RecentMessages"); err != nil {
		return nil, err
	}
	all := s.messages[chatID]
	out := []Message{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *memStore) membershipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, set := range s.memberships {
		n += len(set)
	}
	return n
}

func (s *memStore) resetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
