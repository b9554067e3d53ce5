package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adilzhan-dev/account-service/internal/entity"
	"github.com/adilzhan-dev/account-service/internal/mailer"
	"github.com/adilzhan-dev/account-service/internal/repository"
	"github.com/adilzhan-dev/account-service/internal/token"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("password is incorrect")
	ErrNotVerified        = errors.New("user not verified yet")
	ErrLinkExpired        = errors.New("verification link expired")
	ErrEmptyPassword      = errors.New("password cannot be empty")
)

const (
	verificationTokenTTL = 120 * time.Second
	sessionTokenTTL      = time.Hour
)

// UserRepository is the credential-store contract the usecase depends on.
type UserRepository interface {
	CreateUser(ctx context.Context, user *entity.User) (primitive.ObjectID, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error)
	MarkVerified(ctx context.Context, userID primitive.ObjectID) error
	UpdateToken(ctx context.Context, userID primitive.ObjectID, tok string) error
	ClearToken(ctx context.Context, userID primitive.ObjectID) error
	UpdatePassword(ctx context.Context, userID primitive.ObjectID, hashedPassword string) error
	CacheToken(ctx context.Context, keySuffix, tok string, expiration time.Duration) error
	InvalidateToken(ctx context.Context, keySuffix string) error
}

// PasswordHasher is the one-way hash contract.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, digest string) bool
}

// TokenService signs and verifies the time-limited claim tokens.
type TokenService interface {
	Sign(claims token.Claims, validity time.Duration) (string, error)
	Verify(tokenString string) (*token.Claims, error)
}

type AccountUsecase struct {
	repo    UserRepository
	hasher  PasswordHasher
	tokens  TokenService
	mailer  mailer.Mailer
	baseURL string
	logger  *zap.Logger
}

func NewAccountUsecase(repo UserRepository, hasher PasswordHasher, tokens TokenService, m mailer.Mailer, baseURL string, logger *zap.Logger) *AccountUsecase {
	return &AccountUsecase{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		mailer:  m,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.Named("AccountUsecase"),
	}
}

type SignUpInput struct {
	FirstName   string
	LastName    string
	Username    string
	PhoneNumber string
	Email       string
	Password    string
}

// SignUp creates an unverified account and dispatches a verification email.
// A duplicate email reports ErrEmailExists without creating anything; the
// storage-layer unique index is the authoritative signal, so there is no
// check-then-act window.
func (u *AccountUsecase) SignUp(ctx context.Context, in SignUpInput) (*entity.User, error) {
	email := strings.ToLower(in.Email)

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verifyToken, err := u.tokens.Sign(token.Claims{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     email,
	}, verificationTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign verification token: %w", err)
	}

	user := &entity.User{
		ID:          primitive.NewObjectID(),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Username:    in.Username,
		PhoneNumber: in.PhoneNumber,
		Email:       email,
		Password:    hashed,
		Token:       verifyToken,
	}

	if _, err := u.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			u.logger.Info("Signup for existing email", zap.String("email", email))
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	link := u.verificationLink(user.ID.Hex(), verifyToken)
	u.sendEmail(mailer.Message{
		ToEmail: email,
		ToName:  in.FirstName,
		Subject: "Email Verification",
		HTML:    mailer.VerificationEmail(in.FirstName, link),
		Text:    mailer.VerificationEmailText(in.FirstName, link),
	})

	u.logger.Info("User signed up", zap.String("userID", user.ID.Hex()), zap.String("email", email))
	return user, nil
}

// Verify validates the emailed token for the account. A valid token marks the
// account verified (repeat calls stay verified). An expired token mints a
// fresh one, stores it, emails a new link and reports ErrLinkExpired so the
// caller can tell the user to check their inbox again.
func (u *AccountUsecase) Verify(ctx context.Context, userID, tokenString string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	user, err := u.repo.GetUserByID(ctx, oid)
	if err != nil {
		return fmt.Errorf("failed to load user for verification: %w", err)
	}

	_, err = u.tokens.Verify(tokenString)
	if err == nil {
		if err := u.repo.MarkVerified(ctx, oid); err != nil {
			return fmt.Errorf("failed to mark user verified: %w", err)
		}
		u.logger.Info("User verified", zap.String("userID", userID))
		return nil
	}

	if errors.Is(err, token.ErrExpired) {
		newToken, signErr := u.tokens.Sign(token.Claims{
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		}, verificationTokenTTL)
		if signErr != nil {
			return fmt.Errorf("failed to re-issue verification token: %w", signErr)
		}
		if updErr := u.repo.UpdateToken(ctx, oid, newToken); updErr != nil {
			return fmt.Errorf("failed to store re-issued token: %w", updErr)
		}

		link := u.verificationLink(userID, newToken)
		u.sendEmail(mailer.Message{
			ToEmail: user.Email,
			ToName:  user.FirstName,
			Subject: "RE-VERIFY YOUR ACCOUNT",
			HTML:    mailer.VerificationEmail(user.FirstName, link),
			Text:    mailer.VerificationEmailText(user.FirstName, link),
		})

		u.logger.Info("Verification token expired, new link sent", zap.String("userID", userID))
		return ErrLinkExpired
	}

	return fmt.Errorf("token verification failed: %w", err)
}

// Login checks the credentials and, for verified accounts only, issues a
// one-hour session token. The token is persisted to the account's token slot
// and the Redis cache before it is returned, so storage never lags behind a
// token a client already holds.
func (u *AccountUsecase) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	email = strings.ToLower(email)

	user, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to load user for login: %w", err)
	}

	if !u.hasher.Compare(password, user.Password) {
		u.logger.Info("Login with incorrect password", zap.String("email", email))
		return nil, "", ErrInvalidCredentials
	}

	if !user.IsVerified {
		u.logger.Info("Login attempt by unverified user", zap.String("email", email))
		return nil, "", ErrNotVerified
	}

	sessionToken, err := u.tokens.Sign(token.Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
	}, sessionTokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign session token: %w", err)
	}

	if err := u.repo.UpdateToken(ctx, user.ID, sessionToken); err != nil {
		return nil, "", fmt.Errorf("failed to store session token: %w", err)
	}
	if err := u.repo.CacheToken(ctx, user.ID.Hex(), sessionToken, sessionTokenTTL); err != nil {
		u.logger.Warn("Failed to cache session token, proceeding", zap.String("userID", user.ID.Hex()), zap.Error(err))
	}

	u.logger.Info("User logged in", zap.String("userID", user.ID.Hex()))
	return user, sessionToken, nil
}

// ForgotPassword emails a reset link for the account. The link carries only
// the account id; see the design notes on why that is preserved as-is.
func (u *AccountUsecase) ForgotPassword(ctx context.Context, email string) error {
	user, err := u.repo.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load user for password reset: %w", err)
	}

	link := fmt.Sprintf("%s/api/v1/reset/%s", u.baseURL, user.ID.Hex())
	u.sendEmail(mailer.Message{
		ToEmail: user.Email,
		ToName:  user.FirstName,
		Subject: "Kindly reset your password",
		HTML:    mailer.ResetEmail(user.FirstName, link),
		Text:    mailer.ResetEmailText(user.FirstName, link),
	})

	u.logger.Info("Password reset email dispatched", zap.String("userID", user.ID.Hex()))
	return nil
}

// ResetPassword overwrites the account's credential with a hash of the new
// password. Matching the observed behavior, a reset against an id with no
// account still reports success; only an empty password is rejected.
func (u *AccountUsecase) ResetPassword(ctx context.Context, userID, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}

	hashed, err := u.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := u.repo.UpdatePassword(ctx, oid, hashed); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			u.logger.Warn("Password reset for unknown user id", zap.String("userID", userID))
			return nil
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	u.logger.Info("Password reset", zap.String("userID", userID))
	return nil
}

// SignOut clears the account's current-token slot and the cached copy.
func (u *AccountUsecase) SignOut(ctx context.Context, userID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrNotFound
	}

	if _, err := u.repo.GetUserByID(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load user for sign-out: %w", err)
	}

	if err := u.repo.ClearToken(ctx, oid); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	if err := u.repo.InvalidateToken(ctx, userID); err != nil {
		u.logger.Warn("Failed to invalidate cached token, proceeding", zap.String("userID", userID), zap.Error(err))
	}

	u.logger.Info("User signed out", zap.String("userID", userID))
	return nil
}

func (u *AccountUsecase) verificationLink(userID, tok string) string {
	return fmt.Sprintf("%s/api/v1/verify/%s/%s", u.baseURL, userID, tok)
}

func (u *AccountUsecase) sendEmail(msg mailer.Message) {
	if err := u.mailer.Send(msg); err != nil {
		u.logger.Error("Failed to dispatch email",
			zap.String("toEmail", msg.ToEmail),
			zap.String("subject", msg.Subject),
			zap.Error(err))
	}
}
