package service

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"

	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)

// AuthService manages portal accounts. Every password write, including
// resets, goes through SetPassword so nothing plaintext ever reaches
// the store.
type AuthService struct {
	userRepo core.UserRepository
}

func NewAuthService(userRepo core.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// SetupAdmin creates the first admin account, only while no users
// exist.
func (s *AuthService) SetupAdmin(username, password string) error {
	count, err := s.userRepo.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("setup already completed")
	}
	_, err = s.CreateUser(username, password, core.RoleAdmin)
	return err
}

// CreateUser validates and stores a new account.
func (s *AuthService) CreateUser(username, password string, role core.Role) (*core.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, &core.ValidationError{Reason: "username must be 3-50 characters (letters, digits, underscore)"}
	}
	if !core.ValidRole(role) {
		return nil, &core.ValidationError{Reason: fmt.Sprintf("unknown role %q", role)}
	}
	if existing, err := s.userRepo.GetByUsername(username); err == nil && existing != nil {
		return nil, &core.ValidationError{Reason: "username already taken"}
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &core.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials and returns the account if valid.
// The error is deliberately identical for unknown users and wrong
// passwords.
func (s *AuthService) Authenticate(username, password string) (*core.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}
	if !user.IsActive {
		return nil, errors.New("account is inactive, contact an administrator")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errors.New("invalid credentials")
	}
	return user, nil
}

// SetPassword is the single entry point for password writes. bcrypt
// salts each hash itself.
func (s *AuthService) SetPassword(username, plaintext string) error {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}
	hash, err := hashPassword(plaintext)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.userRepo.Update(user)
}

// SetRole changes an account's role.
func (s *AuthService) SetRole(username string, role core.Role) error {
	if !core.ValidRole(role) {
		return &core.ValidationError{Reason: fmt.Sprintf("unknown role %q", role)}
	}
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}
	user.Role = role
	return s.userRepo.Update(user)
}

// DeleteUser removes an account. Admins cannot remove themselves.
func (s *AuthService) DeleteUser(id int64, actingUserID int64) error {
	if id == actingUserID {
		return &core.ValidationError{Reason: "you cannot delete your own account"}
	}
	return s.userRepo.Delete(id)
}

// HasUsers reports whether initial setup has run.
func (s *AuthService) HasUsers() (bool, error) {
	count, err := s.userRepo.Count()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func hashPassword(plaintext string) (string, error) {
	if len(plaintext) < 8 {
		return "", &core.ValidationError{Reason: "password must be at least 8 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
