package member

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"group-chat/internal/apperr"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*Member, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return nil, apperr.InvalidInput("Missing required information")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperr.InvalidInput("malformed email address")
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.Create(ctx, &Member{
		Email:    req.Email,
		Username: req.Username,
		Password: string(hashedPwd),
	})
	if errors.Is(err, ErrExists) {
		return nil, apperr.New(apperr.KindAlreadyExists, "email or username already registered")
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return m, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]Member, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.InvalidInput("Missing required information")
	}
	members, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return members, nil
}
