package auth

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"comichub/pkg/utils"
)

var ErrBadCredentials = errors.New("bad credentials")

// Service authenticates the single admin principal that may trigger
// ingests and deletes. Regular catalog reads need no authentication.
type Service struct {
	Tokens TokenService

	adminUser string
	adminHash []byte
}

func NewService(cfg utils.AuthConfig) (*Service, error) {
	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		h, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		hash = h
	}

	return &Service{
		Tokens: TokenService{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Duration: cfg.JWTDuration,
		},
		adminUser: cfg.AdminUser,
		adminHash: hash,
	}, nil
}

func (s *Service) Login(username, password string) (string, time.Time, error) {
	if username != s.adminUser {
		return "", time.Time{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrBadCredentials
	}
	return s.Tokens.Sign(username)
}
