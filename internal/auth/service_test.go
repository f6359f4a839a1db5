package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pairchat/pairchat/internal/store"
	"github.com/pairchat/pairchat/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name, email, phone, password string
	}{
		{"", "a@example.com", "111", "password123"},
		{"Alice", "", "111", "password123"},
		{"Alice", "a@example.com", "", "password123"},
		{"Alice", "a@example.com", "111", "12345"}, // password too short
		{"   ", "a@example.com", "111", "password123"},
	}
	for _, c := range cases {
		if _, _, err := svc.Register(ctx, c.name, c.email, c.phone, c.password); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Register(%q, %q, %q) expected ErrInvalidInput, got %v", c.name, c.email, c.phone, err)
		}
	}
}

func TestRegister_NormalizesAndCreatesUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, " Alice ", " Alice@Example.COM ", " +1-555-0101 ", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}
	if user.Name != "Alice" || user.Email != "alice@example.com" || user.Phone != "+1-555-0101" {
		t.Fatalf("fields not normalized: %+v", user)
	}

	// Email collides after normalization.
	if _, _, err := svc.Register(ctx, "Alice2", "alice@example.com", "+1-555-0199", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for duplicate email, got %v", err)
	}
	// Phone collides too.
	if _, _, err := svc.Register(ctx, "Alice3", "other@example.com", "+1-555-0101", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists for duplicate phone, got %v", err)
	}
}

// raceInsertStore simulates the window where a concurrent registration wins
// between the duplicate lookups and the insert: lookups miss, the insert
// hits the unique constraint.
type raceInsertStore struct{}

func (raceInsertStore) CreateUser(ctx context.Context, user *store.User) error {
	return fmt.Errorf("insert user: %w", store.ErrDuplicate)
}

func (raceInsertStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return nil, errors.New("not found")
}

func (raceInsertStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return nil, errors.New("not found")
}

func (raceInsertStore) GetUserByPhone(ctx context.Context, phone string) (*store.User, error) {
	return nil, errors.New("not found")
}

func TestRegister_ConcurrentDuplicateMapsToUserExists(t *testing.T) {
	svc := NewService(raceInsertStore{}, &JWTConfig{Secret: []byte("s"), TTL: time.Hour})

	_, _, err := svc.Register(context.Background(), "Alice", "alice@example.com", "111", "password123")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists when the insert loses the race, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "Alice", "alice@example.com", "111", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, token, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != registered.ID || token == "" {
		t.Fatalf("unexpected login result: %+v", user)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ghost@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestVerifyAndFindUser(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "Alice", "alice@example.com", "111", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := svc.Verify(ctx, registered.ID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("unexpected profile: %+v", user)
	}

	if _, err := svc.Verify(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	found, err := svc.FindUserByPhone(ctx, " 111 ")
	if err != nil {
		t.Fatalf("FindUserByPhone: %v", err)
	}
	if found.ID != registered.ID {
		t.Fatalf("unexpected user: %+v", found)
	}

	if _, err := svc.FindUserByPhone(ctx, "999"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "Alice", "alice@example.com", "111", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != user.ID || claims.Name != "Alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.ValidateToken(token + "tampered"); err == nil {
		t.Fatal("tampered token should be rejected")
	}

	// Token signed with a different secret fails validation.
	otherCfg := &JWTConfig{Secret: []byte("other-secret"), Issuer: "test", Audience: "test", TTL: time.Hour}
	foreign, err := GenerateToken(otherCfg, user.ID, "Alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(foreign); err == nil {
		t.Fatal("token with wrong signature should be rejected")
	}
}

func TestValidateTokenChecksIssuerAndAudience(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("s"), Issuer: "pairchat", Audience: "pairchat-clients", TTL: time.Hour}

	token, err := GenerateToken(cfg, "u-1", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken(cfg, token); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	badIssuer := &JWTConfig{Secret: cfg.Secret, Issuer: "someone-else", Audience: cfg.Audience, TTL: time.Hour}
	if _, err := ValidateToken(badIssuer, token); err == nil {
		t.Fatal("wrong issuer should be rejected")
	}

	badAudience := &JWTConfig{Secret: cfg.Secret, Issuer: cfg.Issuer, Audience: "other-app", TTL: time.Hour}
	if _, err := ValidateToken(badAudience, token); err == nil {
		t.Fatal("wrong audience should be rejected")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	cfg := &JWTConfig{Secret: []byte("s"), Issuer: "test", Audience: "test", TTL: -time.Minute}

	token, err := GenerateToken(cfg, "u-1", "Alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ValidateToken(cfg, token); err == nil {
		t.Fatal("expired token should be rejected")
	}
}
