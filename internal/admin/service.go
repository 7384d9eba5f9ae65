package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"realty-backend/internal/auth"
	"realty-backend/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrNotConfigured      = errors.New("admin sessions not configured")
)

type Service struct {
	repo       Repository
	tokens     *auth.Manager
	sessionTTL time.Duration
	log        *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, tokens *auth.Manager, sessionTTL time.Duration, log *slog.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, sessionTTL: sessionTTL, log: log, now: time.Now}
}

func (s *Service) CreateAdmin(ctx context.Context, req CreateAdminRequest) (Admin, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return Admin{}, err
	}
	a := Admin{
		ID:           primitive.NewObjectID().Hex(),
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateAdmin(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Admin{}, ErrUsernameTaken
		}
		return Admin{}, err
	}
	return a, nil
}

// Login checks the password, stores a session row and returns a token bound to it.
func (s *Service) Login(ctx context.Context, req LoginRequest, userAgent string) (Session, string, error) {
	if s.tokens == nil {
		return Session{}, "", ErrNotConfigured
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	a, err := s.repo.GetAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Session{}, "", ErrInvalidCredentials
		}
		return Session{}, "", err
	}
	if err := auth.ComparePassword(a.PasswordHash, req.Password); err != nil {
		return Session{}, "", ErrInvalidCredentials
	}

	now := s.now().UTC()
	session := Session{
		ID:        uuid.NewString(),
		AdminID:   a.ID,
		Username:  a.Username,
		UserAgent: truncate(userAgent, 256),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return Session{}, "", fmt.Errorf("create session: %w", err)
	}

	token, err := s.tokens.NewAccessToken(session.ID, session.Username, session.ExpiresAt)
	if err != nil {
		return Session{}, "", fmt.Errorf("sign token: %w", err)
	}
	return session, token, nil
}

// VerifySession accepts a token only while its session row exists and has not expired.
func (s *Service) VerifySession(ctx context.Context, token string) (middleware.AdminIdentity, error) {
	if s.tokens == nil {
		return middleware.AdminIdentity{}, ErrNotConfigured
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return middleware.AdminIdentity{}, err
	}
	session, err := s.repo.GetSession(ctx, claims.SessionID)
	if err != nil {
		return middleware.AdminIdentity{}, err
	}
	if !session.ExpiresAt.After(s.now()) {
		return middleware.AdminIdentity{}, ErrSessionExpired
	}
	if session.Username != claims.Username {
		return middleware.AdminIdentity{}, auth.ErrInvalidToken
	}
	return middleware.AdminIdentity{
		SessionID: session.ID,
		AdminID:   session.AdminID,
		Username:  session.Username,
	}, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, sessionID)
}

func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, s.now().UTC())
}

func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
