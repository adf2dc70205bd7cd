package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yogastudio/internal/auth"
	"github.com/yogastudio/internal/logger"
	"github.com/yogastudio/internal/model"
	"github.com/yogastudio/internal/repository"
	"github.com/yogastudio/internal/storage"
)

// AccountStore is implemented by *repository.UserRepository.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *model.User) error
}

// TokenIssuer is implemented by *auth.TokenCodec.
type TokenIssuer interface {
	Issue(p *auth.Principal) (string, error)
}

// WelcomeMailer is implemented by *email.Sender.
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, to, firstName string) error
}

const welcomeMailTimeout = 30 * time.Second

type AuthService struct {
	users    AccountStore
	tokens   TokenIssuer
	throttle storage.LoginThrottle
	mailer   WelcomeMailer
}

// NewAuthService wires the login/registration flow. throttle and mailer may be nil.
func NewAuthService(users AccountStore, tokens TokenIssuer, throttle storage.LoginThrottle, mailer WelcomeMailer) *AuthService {
	return &AuthService{users: users, tokens: tokens, throttle: throttle, mailer: mailer}
}

type LoginResult struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Admin     bool   `json:"admin"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=50"`
	FirstName string `json:"firstName" validate:"required,min=3,max=20"`
	LastName  string `json:"lastName" validate:"required,min=3,max=20"`
	Password  string `json:"password" validate:"required,min=6,max=40"`
}

// normalizeEmail is the stored form of an email and the login throttle key.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks the credentials and issues a bearer token. Unknown email and
// wrong password are both ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	key := email
	if s.throttle != nil {
		ok, err := s.throttle.Allow(ctx, key)
		if err != nil {
			// Throttle backend down: let the login through.
			logger.Errorf("login throttle: %v", err)
		} else if !ok {
			logger.Infof("login: throttled %s", key)
			return nil, ErrTooManyAttempts
		}
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("login %s: %w", key, ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, fmt.Errorf("login %s: %w", key, ErrUnauthorized)
	}
	p := auth.PrincipalFromUser(user)
	token, err := s.tokens.Issue(p)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: issue token: %w", err)
	}
	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, key); err != nil {
			logger.Errorf("login throttle reset: %v", err)
		}
	}
	return &LoginResult{
		Token:     token,
		Type:      "Bearer",
		ID:        p.ID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Admin:     p.Admin,
	}, nil
}

// Register creates a non-admin user. The welcome mail is sent in the
// background and its failure does not fail the registration.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	user, err := s.createUser(ctx, req, false)
	if err != nil {
		return nil, err
	}
	if s.mailer != nil {
		go func(to, name string) {
			mctx, cancel := context.WithTimeout(context.Background(), welcomeMailTimeout)
			defer cancel()
			if err := s.mailer.SendWelcome(mctx, to, name); err != nil {
				logger.Errorf("register: welcome mail to %s: %v", to, err)
			}
		}(user.Email, user.FirstName)
	}
	return user, nil
}

// BootstrapAdmin creates an administrator unless the email is already
// registered. created is false when the account existed.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email, password, firstName, lastName string) (created bool, err error) {
	_, err = s.createUser(ctx, RegisterRequest{
		Email: email, Password: password, FirstName: firstName, LastName: lastName,
	}, true)
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	logger.Infof("admin account %s created", email)
	return true, nil
}

func (s *AuthService) createUser(ctx context.Context, req RegisterRequest, admin bool) (*model.User, error) {
	email := normalizeEmail(req.Email)
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}
	u := &model.User{
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Admin:        admin,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth.Register: %w", err)
	}
	return u, nil
}
