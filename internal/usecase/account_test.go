package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adilzhan-dev/account-service/internal/entity"
	"github.com/adilzhan-dev/account-service/internal/hasher"
	"github.com/adilzhan-dev/account-service/internal/mailer"
	"github.com/adilzhan-dev/account-service/internal/repository"
	"github.com/adilzhan-dev/account-service/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- fakes ---

type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[primitive.ObjectID]*entity.User
	cached      map[string]string
	invalidated []string

	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[primitive.ObjectID]*entity.User),
		cached: make(map[string]string),
	}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *entity.User) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return primitive.NilObjectID, f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicateEmail
		}
	}
	cp := *user
	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	f.users[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, userID primitive.ObjectID) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) MarkVerified(_ context.Context, userID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsVerified = true
	return nil
}

func (f *fakeUserRepo) UpdateToken(_ context.Context, userID primitive.ObjectID, tok string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Token = tok
	return nil
}

func (f *fakeUserRepo) ClearToken(_ context.Context, userID primitive.ObjectID) error {
	return f.UpdateToken(context.Background(), userID, "")
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, userID primitive.ObjectID, hashedPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Password = hashedPassword
	return nil
}

func (f *fakeUserRepo) CacheToken(_ context.Context, keySuffix, tok string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached[keySuffix] = tok
	return nil
}

func (f *fakeUserRepo) InvalidateToken(_ context.Context, keySuffix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cached, keySuffix)
	f.invalidated = append(f.invalidated, keySuffix)
	return nil
}

func (f *fakeUserRepo) mustGet(t *testing.T, id primitive.ObjectID) *entity.User {
	t.Helper()
	u, err := f.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeMailer) messages() []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Message(nil), f.sent...)
}

// --- helpers ---

const testBaseURL = "http://localhost:8080"

func newTestUsecase(repo *fakeUserRepo, m *fakeMailer) (*AccountUsecase, *token.Service, *hasher.Bcrypt) {
	tokens := token.NewService("test-secret")
	h := hasher.NewBcrypt(bcrypt.MinCost)
	u := NewAccountUsecase(repo, h, tokens, m, testBaseURL, zap.NewNop())
	return u, tokens, h
}

func seedUser(t *testing.T, repo *fakeUserRepo, h *hasher.Bcrypt, email, password string, verified bool) *entity.User {
	t.Helper()
	hash, err := h.Hash(password)
	require.NoError(t, err)
	user := &entity.User{
		ID:        primitive.NewObjectID(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		Email:     email,
		Password:  hash,
	}
	id, err := repo.CreateUser(context.Background(), user)
	require.NoError(t, err)
	user.ID = id
	if verified {
		require.NoError(t, repo.MarkVerified(context.Background(), id))
	}
	return user
}

// --- signup ---

func TestSignUp_CreatesUnverifiedUserAndSendsOneEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, tokens, h := newTestUsecase(repo, m)

	user, err := u.SignUp(context.Background(), SignUpInput{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Username:    "ada",
		PhoneNumber: "123",
		Email:       "A@X.com",
		Password:    "p1",
	})
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", user.Email, "email must be lowercased")
	assert.False(t, user.IsVerified)
	assert.NotEmpty(t, user.Token)
	assert.True(t, h.Compare("p1", user.Password), "stored credential must be a hash of the password")
	assert.NotEqual(t, "p1", user.Password)

	claims, err := tokens.Verify(user.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "Ada", claims.FirstName)

	sent := m.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@x.com", sent[0].ToEmail)
	assert.Contains(t, sent[0].HTML, fmt.Sprintf("%s/api/v1/verify/%s/%s", testBaseURL, user.ID.Hex(), user.Token))
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, _, _ := newTestUsecase(repo, m)

	_, err := u.SignUp(context.Background(), SignUpInput{FirstName: "Ada", Email: "a@x.com", Password: "p1"})
	require.NoError(t, err)

	_, err = u.SignUp(context.Background(), SignUpInput{FirstName: "Eve", Email: "A@x.COM", Password: "p2"})
	require.ErrorIs(t, err, ErrEmailExists)

	assert.Len(t, repo.users, 1, "no second account may be created")
	assert.Len(t, m.messages(), 1, "no email for the duplicate attempt")
}

func TestSignUp_RepositoryFailure(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	repo.createErr = errors.New("connection reset")
	m := &fakeMailer{}
	u, _, _ := newTestUsecase(repo, m)

	_, err := u.SignUp(context.Background(), SignUpInput{FirstName: "Ada", Email: "a@x.com", Password: "p1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailExists)
	assert.Empty(t, m.messages())
}

// --- verify ---

func TestVerify_ValidTokenMarksVerified(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, tokens, h := newTestUsecase(repo, m)
	user := seedUser(t, repo, h, "a@x.com", "p1", false)

	tok, err := tokens.Sign(token.Claims{Email: user.Email, FirstName: user.FirstName}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, u.Verify(context.Background(), user.ID.Hex(), tok))
	assert.True(t, repo.mustGet(t, user.ID).IsVerified)
	assert.Empty(t, m.messages())
}

func TestVerify_RepeatWithSameValidTokenStaysVerified(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, tokens, h := newTestUsecase(repo, m)
	user := seedUser(t, repo, h, "a@x.com", "p1", false)

	tok, err := tokens.Sign(token.Claims{Email: user.Email}, time.Minute)
	require.NoError(t, err)

	require.NoError(t, u.Verify(context.Background(), user.ID.Hex(), tok))
	require.NoError(t, u.Verify(context.Background(), user.ID.Hex(), tok))
	assert.True(t, repo.mustGet(t, user.ID).IsVerified)
}

func TestVerify_ExpiredTokenReissuesAndEmails(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, tokens, h := newTestUsecase(repo, m)
	user := seedUser(t, repo, h, "a@x.com", "p1", false)

	expired, err := tokens.Sign(token.Claims{Email: user.Email}, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateToken(context.Background(), user.ID, expired))

	err = u.Verify(context.Background(), user.ID.Hex(), expired)
	require.ErrorIs(t, err, ErrLinkExpired)

	stored := repo.mustGet(t, user.ID)
	assert.False(t, stored.IsVerified)
	assert.NotEmpty(t, stored.Token)
	assert.NotEqual(t, expired, stored.Token, "a fresh token must replace the expired one")

	_, err = tokens.Verify(stored.Token)
	assert.NoError(t, err, "re-issued token must be valid")

	sent := m.messages()
	require.Len(t, sent, 1, "exactly one new email dispatch")
	assert.Equal(t, "RE-VERIFY YOUR ACCOUNT", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, stored.Token)
}

func TestVerify_TamperedTokenIsNotExpired(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, _, h := newTestUsecase(repo, m)
	user := seedUser(t, repo, h, "a@x.com", "p1", false)

	forged, err := token.NewService("other-secret").Sign(token.Claims{Email: user.Email}, time.Minute)
	require.NoError(t, err)

	err = u.Verify(context.Background(), user.ID.Hex(), forged)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLinkExpired)
	assert.False(t, repo.mustGet(t, user.ID).IsVerified)
	assert.Empty(t, m.messages())
}

func TestVerify_UnknownUser(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, tokens, _ := newTestUsecase(repo, &fakeMailer{})

	tok, err := tokens.Sign(token.Claims{Email: "a@x.com"}, time.Minute)
	require.NoError(t, err)

	err = u.Verify(context.Background(), primitive.NewObjectID().Hex(), tok)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLinkExpired)
}

// --- login ---

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, tokens, h := newTestUsecase(repo, &fakeMailer{})
	user := seedUser(t, repo, h, "a@x.com", "p1", true)

	got, tok, err := u.Login(context.Background(), "A@X.com", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.Equal(t, user.ID, got.ID)

	claims, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)

	assert.Equal(t, tok, repo.mustGet(t, user.ID).Token, "token slot persisted before the response")
	assert.Equal(t, tok, repo.cached[user.ID.Hex()])
}

func TestLogin_UnknownEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, _, _ := newTestUsecase(repo, &fakeMailer{})

	_, _, err := u.Login(context.Background(), "missing@x.com", "p1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, _, h := newTestUsecase(repo, &fakeMailer{})
	user := seedUser(t, repo, h, "a@x.com", "p1", true)

	_, _, err := u.Login(context.Background(), "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, repo.mustGet(t, user.ID).Token)
}

func TestLogin_NeverIssuesTokenWhileUnverified(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, _, h := newTestUsecase(repo, &fakeMailer{})
	user := seedUser(t, repo, h, "a@x.com", "p1", false)

	_, tok, err := u.Login(context.Background(), "a@x.com", "p1")
	require.ErrorIs(t, err, ErrNotVerified)
	assert.Empty(t, tok)
	assert.Empty(t, repo.mustGet(t, user.ID).Token)
	assert.Empty(t, repo.cached)
}

// --- forgot password ---

func TestForgotPassword_SendsResetLink(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, _, h := newTestUsecase(repo, m)
	user := seedUser(t, repo, h, "a@x.com", "p1", true)

	require.NoError(t, u.ForgotPassword(context.Background(), "A@x.com"))

	sent := m.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@x.com", sent[0].ToEmail)
	assert.Contains(t, sent[0].HTML, fmt.Sprintf("%s/api/v1/reset/%s", testBaseURL, user.ID.Hex()))
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, _, _ := newTestUsecase(repo, m)

	err := u.ForgotPassword(context.Background(), "missing@x.com")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, m.messages())
}

// --- reset password ---

func TestResetPassword_EmptyPasswordNeverTouchesHash(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, _, h := newTestUsecase(repo, &fakeMailer{})
	user := seedUser(t, repo, h, "a@x.com", "p1", true)
	before := repo.mustGet(t, user.ID).Password

	err := u.ResetPassword(context.Background(), user.ID.Hex(), "")
	require.ErrorIs(t, err, ErrEmptyPassword)
	assert.Equal(t, before, repo.mustGet(t, user.ID).Password)
}

func TestResetPassword_OverwritesCredential(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, _, h := newTestUsecase(repo, &fakeMailer{})
	user := seedUser(t, repo, h, "a@x.com", "p1", true)

	require.NoError(t, u.ResetPassword(context.Background(), user.ID.Hex(), "p2"))

	stored := repo.mustGet(t, user.ID)
	assert.True(t, h.Compare("p2", stored.Password))
	assert.False(t, h.Compare("p1", stored.Password))
}

func TestResetPassword_UnknownIDStillReportsSuccess(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, _, _ := newTestUsecase(repo, &fakeMailer{})

	err := u.ResetPassword(context.Background(), primitive.NewObjectID().Hex(), "p2")
	require.NoError(t, err)
}

// --- sign out ---

func TestSignOut_ClearsTokenSlotAndCache(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, _, h := newTestUsecase(repo, &fakeMailer{})
	user := seedUser(t, repo, h, "a@x.com", "p1", true)

	_, tok, err := u.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	require.NoError(t, u.SignOut(context.Background(), user.ID.Hex()))
	assert.Empty(t, repo.mustGet(t, user.ID).Token)
	assert.NotContains(t, repo.cached, user.ID.Hex())
	assert.Contains(t, repo.invalidated, user.ID.Hex())
}

func TestSignOut_UnknownUser(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u, _, _ := newTestUsecase(repo, &fakeMailer{})

	require.ErrorIs(t, u.SignOut(context.Background(), primitive.NewObjectID().Hex()), ErrNotFound)
	require.ErrorIs(t, u.SignOut(context.Background(), "not-an-id"), ErrNotFound)
}

// --- full journey, matching the documented scenario ---

func TestAccountJourney(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	m := &fakeMailer{}
	u, tokens, _ := newTestUsecase(repo, m)

	user, err := u.SignUp(context.Background(), SignUpInput{FirstName: "Ada", Username: "ada", Email: "a@x.com", Password: "p1"})
	require.NoError(t, err)
	require.Len(t, m.messages(), 1)

	_, err = u.SignUp(context.Background(), SignUpInput{FirstName: "Ada", Username: "ada", Email: "a@x.com", Password: "p1"})
	require.ErrorIs(t, err, ErrEmailExists)
	require.Len(t, m.messages(), 1)

	_, _, err = u.Login(context.Background(), "a@x.com", "p1")
	require.ErrorIs(t, err, ErrNotVerified)

	expired, err := tokens.Sign(token.Claims{Email: user.Email}, -time.Second)
	require.NoError(t, err)
	require.ErrorIs(t, u.Verify(context.Background(), user.ID.Hex(), expired), ErrLinkExpired)
	require.Len(t, m.messages(), 2)

	fresh := repo.mustGet(t, user.ID).Token
	require.NoError(t, u.Verify(context.Background(), user.ID.Hex(), fresh))

	_, tok, err := u.Login(context.Background(), "a@x.com", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	_, _, err = u.Login(context.Background(), "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
