package user

import (
	"context"
	"errors"
	"testing"

	"github.com/freelance-hub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, role string) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newService(us *mockUserStore, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{UserRepo: us, JWTProvider: jwt})
}

func baseReq() domain.CreateUserRequest {
	return domain.CreateUserRequest{
		Name:     "Alice",
		Password: "password123",
		Email:    "Alice@Example.com ",
		Role:     domain.RoleFreelancer,
	}
}

func hashed(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func ptr[T any](v T) *T { return &v }

// --- Register tests ---

func TestRegister_EmailConflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{}, nil)

	svc := newService(us, nil)
	_, err := svc.Register(context.Background(), baseReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	us.AssertExpectations(t)
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	svc := newService(&mockUserStore{}, nil)
	req := baseReq()
	req.Role = domain.RoleAdmin
	_, err := svc.Register(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_StoreErrorPropagates(t *testing.T) {
	us := &mockUserStore{}
	storeErr := errors.New("dynamo error")
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, storeErr)

	svc := newService(us, nil)
	_, err := svc.Register(context.Background(), baseReq())
	assert.Equal(t, storeErr, err)
}

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	jwt := &mockJWTSigner{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	jwt.On("Sign", mock.Anything, domain.RoleFreelancer).Return("tok", nil)

	svc := newService(us, jwt)
	res, err := svc.Register(context.Background(), baseReq())

	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.True(t, res.User.Enable)
	assert.NotEqual(t, "password123", res.User.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(res.User.PasswordHash), []byte("password123")))
	us.AssertExpectations(t)
	jwt.AssertExpectations(t)
}

// --- Login tests ---

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound)

	_, err := newService(us, nil).Login(context.Background(), domain.LoginRequest{Email: "ghost@example.com", Password: "x"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@example.com").
		Return(&domain.User{UserID: "u1", PasswordHash: hashed(t, "right-password"), Enable: true}, nil)

	_, err := newService(us, nil).Login(context.Background(), domain.LoginRequest{Email: "a@example.com", Password: "wrong-password"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_DisabledAccount(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@example.com").
		Return(&domain.User{UserID: "u1", PasswordHash: hashed(t, "password123")}, nil)

	_, err := newService(us, nil).Login(context.Background(), domain.LoginRequest{Email: "a@example.com", Password: "password123"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestLogin_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	jwt := &mockJWTSigner{}
	us.On("GetByEmail", mock.Anything, "a@example.com").
		Return(&domain.User{UserID: "u1", Role: domain.RoleClient, PasswordHash: hashed(t, "password123"), Enable: true}, nil)
	jwt.On("Sign", "u1", domain.RoleClient).Return("tok", nil)

	res, err := newService(us, jwt).Login(context.Background(), domain.LoginRequest{Email: "A@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	jwt.AssertExpectations(t)
}

// --- Profile tests ---

func TestProfile_HidesPrivateFieldsFromOthers(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@example.com", NotificationIDs: []string{"n1"}}, nil)

	svc := newService(us, nil)
	other, err := svc.Profile(context.Background(), "u2", "u1")
	require.NoError(t, err)
	assert.Empty(t, other.Email)
	assert.Empty(t, other.NotificationIDs)

	self, err := svc.Profile(context.Background(), "u1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", self.Email)
}

// --- Update tests ---

func TestUpdate_EmptyRequest_ReturnsExistingUser(t *testing.T) {
	us := &mockUserStore{}
	existing := &domain.User{UserID: "u1", Name: "alice"}
	us.On("Get", mock.Anything, "u1").Return(existing, nil)

	svc := newService(us, nil)
	u, err := svc.Update(context.Background(), "u1", domain.UpdateUserRequest{})

	require.NoError(t, err)
	assert.Equal(t, existing, u)
	us.AssertExpectations(t)
}

func TestUpdate_BlankName(t *testing.T) {
	svc := newService(&mockUserStore{}, nil)
	_, err := svc.Update(context.Background(), "u1", domain.UpdateUserRequest{Name: ptr("   ")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpdate_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	updated := &domain.User{UserID: "u1", Name: "bob", Skills: []string{"go"}}
	us.On("Update", mock.Anything, "u1", map[string]interface{}{"name": "bob", "skills": []string{"go"}}).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(updated, nil)

	svc := newService(us, nil)
	u, err := svc.Update(context.Background(), "u1", domain.UpdateUserRequest{
		Name:   ptr("bob"),
		Skills: ptr([]string{"go"}),
	})

	require.NoError(t, err)
	assert.Equal(t, "bob", u.Name)
	us.AssertExpectations(t)
}

// --- ChangePassword tests ---

func TestChangePassword_WrongCurrent(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: hashed(t, "old-password")}, nil)

	err := newService(us, nil).ChangePassword(context.Background(), "u1", domain.ChangePasswordRequest{
		CurrentPassword: "nope", NewPassword: "new-password",
	})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: hashed(t, "old-password")}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		h, _ := m["password_hash"].(string)
		return bcrypt.CompareHashAndPassword([]byte(h), []byte("new-password")) == nil
	})).Return(nil)

	err := newService(us, nil).ChangePassword(context.Background(), "u1", domain.ChangePasswordRequest{
		CurrentPassword: "old-password", NewPassword: "new-password",
	})
	require.NoError(t, err)
	us.AssertExpectations(t)
}
