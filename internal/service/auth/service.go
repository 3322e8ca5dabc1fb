package auth

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	coreauth "pinky-promise-api/internal/core/auth"
	"pinky-promise-api/internal/domain"
	"pinky-promise-api/pkg/utils"
)

// Service implements the session lifecycle: register, login, refresh.
// It owns no HTTP concerns; the handlers translate its errors to statuses.
type Service struct {
	users      domain.UserRepository
	jwter      *coreauth.JWTer
	bcryptCost int
	log        *zap.Logger
}

func NewService(users domain.UserRepository, jwter *coreauth.JWTer, bcryptCost int, log *zap.Logger) *Service {
	return &Service{users: users, jwter: jwter, bcryptCost: bcryptCost, log: log}
}

// Register creates a new identity record. It issues no tokens; the caller
// logs in afterwards. Duplicate emails fail with domain.ErrEmailTaken, with
// the unique index as the final arbiter under concurrency.
func (s *Service) Register(name, email, password string) (domain.Public, error) {
	if name == "" || email == "" || password == "" {
		return domain.Public{}, &ValidationError{Msg: "All fields are required"}
	}

	existing, err := s.users.FindByEmail(email)
	if err != nil {
		return domain.Public{}, err
	}
	if existing != nil {
		return domain.Public{}, domain.ErrEmailTaken
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return domain.Public{}, err
	}
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(u); err != nil {
		// lost the race to a concurrent registration
		return domain.Public{}, err
	}

	s.log.Info("user registered", zap.String("user_id", u.ID))
	return u.Public(), nil
}

// Login verifies credentials and mints the token pair. Unknown email and
// wrong password return the identical error.
func (s *Service) Login(email, password string) (coreauth.TokenPair, error) {
	if email == "" || password == "" {
		return coreauth.TokenPair{}, &ValidationError{Msg: "Email and password required"}
	}

	u, err := s.users.FindByEmail(email)
	if err != nil {
		return coreauth.TokenPair{}, err
	}
	if u == nil {
		return coreauth.TokenPair{}, ErrInvalidCredentials
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return coreauth.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.jwter.IssuePair(u.ID, u.Email)
	if err != nil {
		return coreauth.TokenPair{}, err
	}
	s.log.Info("user logged in", zap.String("user_id", u.ID))
	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh access token carrying
// the same claims. The refresh token is not rotated.
func (s *Service) Refresh(refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrMissingToken
	}

	claims, err := s.jwter.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, coreauth.ErrTokenExpired) {
			s.log.Info("refresh rejected: token expired")
		} else {
			s.log.Info("refresh rejected: bad signature or malformed")
		}
		return "", ErrInvalidRefreshToken
	}

	access, err := s.jwter.IssueAccess(claims.UserID, claims.Email)
	if err != nil {
		return "", err
	}
	return access, nil
}
