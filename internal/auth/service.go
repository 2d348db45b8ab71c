package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-server/internal/config"
	"chat-server/internal/directory"
	"chat-server/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

var validate = validator.New()

type Service struct {
	dir directory.Directory
	cfg *config.Config
}

func NewService(dir directory.Directory, cfg *config.Config) *Service {
	return &Service{
		dir: dir,
		cfg: cfg,
	}
}

// Register creates a password-protected account.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct, err := s.dir.Create(ctx, req.Username, string(hash))
	if err != nil {
		return nil, err
	}

	return s.loginResponse(acct)
}

// Login resolves the username to a stable identity and mints a session
// token. Unknown usernames get an account on the fly so any name can log
// in, like the original open chat. A password is only enforced for
// accounts that registered one.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	acct, err := s.dir.Lookup(ctx, req.Username)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		var hash string
		if req.Password != "" {
			hashed, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if hashErr != nil {
				return nil, fmt.Errorf("failed to hash password: %w", hashErr)
			}
			hash = string(hashed)
		}
		acct, err = s.dir.Create(ctx, req.Username, hash)
		if errors.Is(err, directory.ErrExists) {
			// lost a create race, the account is there now
			acct, err = s.dir.Lookup(ctx, req.Username)
		}
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if acct.PasswordHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)) != nil {
				return nil, ErrInvalidCredentials
			}
		}
	}

	return s.loginResponse(acct)
}

// Verify parses the session token into an identity. Callers treat any
// error the same as an absent token and fall back to a guest.
func (s *Service) Verify(tokenString string) (models.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.JWT.Secret, nil
	})
	if err != nil {
		return models.Identity{}, err
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Identity{}, fmt.Errorf("invalid token")
	}

	id, _ := (*claims)["sub"].(string)
	name, _ := (*claims)["name"].(string)
	if id == "" || name == "" {
		return models.Identity{}, fmt.Errorf("token missing identity claims")
	}
	return models.Identity{ID: id, Name: name}, nil
}

// Guest synthesizes a throwaway identity for connections without a usable
// token. The handshake never fails for missing credentials.
func Guest() models.Identity {
	id := uuid.NewString()
	return models.Identity{ID: id, Name: "Guest_" + id[:5]}
}

func (s *Service) loginResponse(acct *directory.Account) (*models.LoginResponse, error) {
	token, err := s.mintToken(acct.ID, acct.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.LoginResponse{
		Token:    token,
		UserID:   acct.ID,
		Username: acct.Username,
	}, nil
}

func (s *Service) mintToken(identityID, username string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  identityID,
		"name": username,
		"exp":  time.Now().Add(s.cfg.JWT.ExpiresIn).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.JWT.Secret)
}
