package user

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-key-for-unit-tests-only-0001"
	cfg.JWT.AccessTokenExpiry = time.Hour
	cfg.JWT.RefreshTokenExpiry = 24 * time.Hour
	cfg.Security.BcryptCost = 4 // keep the tests fast
	return cfg
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "user_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	return NewService(db, testConfig()), db
}

const strongPassword = "Vx9!mTqe#Lw2"

func registerTestUser(t *testing.T, svc *Service, email string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(&RegisterRequest{
		Email:           email,
		Password:        strongPassword,
		ConfirmPassword: strongPassword,
		Name:            "Test User",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return resp
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)

	resp := registerTestUser(t, svc, "seller@pharmacy.test")

	if resp.User.Role != RoleSeller {
		t.Errorf("expected new accounts to get the seller role, got %s", resp.User.Role)
	}
	if resp.User.Password != "" {
		t.Error("expected password to be cleared from the response")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected both tokens to be issued")
	}
}

func TestRegisterPasswordMismatch(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(&RegisterRequest{
		Email:           "seller@pharmacy.test",
		Password:        strongPassword,
		ConfirmPassword: "different",
		Name:            "Test User",
	})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	registerTestUser(t, svc, "seller@pharmacy.test")

	_, err := svc.Register(&RegisterRequest{
		Email:           "seller@pharmacy.test",
		Password:        strongPassword,
		ConfirmPassword: strongPassword,
		Name:            "Again",
	})
	if !apperrors.IsConflict(err) {
		t.Errorf("expected conflict for duplicate email, got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(&RegisterRequest{
		Email:           "seller@pharmacy.test",
		Password:        "short",
		ConfirmPassword: "short",
		Name:            "Test User",
	})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for weak password, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, db := newTestService(t)
	registerTestUser(t, svc, "seller@pharmacy.test")

	resp, err := svc.Login(&LoginRequest{Email: "seller@pharmacy.test", Password: strongPassword})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected an access token")
	}

	var stored User
	if err := db.Where("email = ?", "seller@pharmacy.test").First(&stored).Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Error("expected last login timestamp to be recorded")
	}
}

func TestLoginRejections(t *testing.T) {
	svc, db := newTestService(t)
	registerTestUser(t, svc, "seller@pharmacy.test")

	if _, err := svc.Login(&LoginRequest{Email: "seller@pharmacy.test", Password: "Wrong#Pass9x"}); !apperrors.IsUnauthenticated(err) {
		t.Errorf("expected unauthenticated for wrong password, got %v", err)
	}
	if _, err := svc.Login(&LoginRequest{Email: "nobody@pharmacy.test", Password: strongPassword}); !apperrors.IsUnauthenticated(err) {
		t.Errorf("expected unauthenticated for unknown email, got %v", err)
	}

	// Deactivated accounts cannot log in
	db.Model(&User{}).Where("email = ?", "seller@pharmacy.test").Update("is_active", false)
	if _, err := svc.Login(&LoginRequest{Email: "seller@pharmacy.test", Password: strongPassword}); !apperrors.IsUnauthenticated(err) {
		t.Errorf("expected unauthenticated for deactivated account, got %v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	svc, _ := newTestService(t)
	resp := registerTestUser(t, svc, "seller@pharmacy.test")

	refreshed, err := svc.RefreshToken(resp.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("expected a fresh access token")
	}

	if _, err := svc.RefreshToken("not-a-token"); !apperrors.IsUnauthenticated(err) {
		t.Errorf("expected unauthenticated for garbage token, got %v", err)
	}
}

func TestCreateUserRequiresManager(t *testing.T) {
	svc, db := newTestService(t)
	seller := registerTestUser(t, svc, "seller@pharmacy.test")

	req := &CreateUserRequest{
		Email:    "new@pharmacy.test",
		Password: strongPassword,
		Name:     "New Seller",
		Role:     RoleSeller,
	}

	if _, err := svc.CreateUser(seller.User.ID, req); !apperrors.IsAuthorization(err) {
		t.Errorf("expected authorization error for seller actor, got %v", err)
	}
	if _, err := svc.CreateUser(0, req); !apperrors.IsUnauthenticated(err) {
		t.Errorf("expected unauthenticated for missing actor, got %v", err)
	}

	// Promote the actor and retry
	db.Model(&User{}).Where("id = ?", seller.User.ID).Update("role", RoleManager)

	created, err := svc.CreateUser(seller.User.ID, req)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.Role != RoleSeller || created.Password != "" {
		t.Errorf("unexpected created user: %+v", created)
	}

	if _, err := svc.CreateUser(seller.User.ID, &CreateUserRequest{
		Email: "odd@pharmacy.test", Password: strongPassword, Name: "Odd", Role: "superuser",
	}); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	svc, db := newTestService(t)
	manager := registerTestUser(t, svc, "manager@pharmacy.test")
	db.Model(&User{}).Where("id = ?", manager.User.ID).Update("role", RoleManager)
	registerTestUser(t, svc, "seller@pharmacy.test")

	users, err := svc.ListUsers(manager.User.ID)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.Password != "" {
			t.Errorf("expected password cleared for %s", u.Email)
		}
	}
}

func TestGetProfile(t *testing.T) {
	svc, _ := newTestService(t)
	resp := registerTestUser(t, svc, "seller@pharmacy.test")

	profile, err := svc.GetProfile(resp.User.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Email != "seller@pharmacy.test" || profile.Password != "" {
		t.Errorf("unexpected profile: %+v", profile)
	}

	if _, err := svc.GetProfile(999); !apperrors.IsNotFound(err) {
		t.Errorf("expected not found for unknown user, got %v", err)
	}
}
