package services

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rshakya/taskhub-be/internal/auth"
	"github.com/rshakya/taskhub-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	CreateUser(name, email, password string, age int) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUserByID(id string) (models.User, error)
	UpdateUser(id string, upd UserUpdate) (models.User, error)
	DeleteUser(id string) (models.User, error)
	IssueToken(userID string) (string, error)
	RevokeToken(userID, token string) error
	RevokeAllTokens(userID string) error
	ResolveToken(token string) (models.User, error)
	SetAvatar(userID string, avatar []byte) error
	ClearAvatar(userID string) error
	GetAvatar(userID string) ([]byte, error)
}

// UserUpdate is a partial profile update. Nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Age      *int
}

// UserService provides business logic for user and session management.
type UserService struct {
	db         *sql.DB
	tokens     *auth.Manager
	bcryptCost int
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, tokens *auth.Manager, bcryptCost int) *UserService {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{db: db, tokens: tokens, bcryptCost: bcryptCost}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 7

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationErrorf("name is required")
	}
	return name, nil
}

func validateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", validationErrorf("email is invalid")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return validationErrorf("password must be at least %d characters", minPasswordLength)
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return validationErrorf(`password cannot contain "password"`)
	}
	return nil
}

func validateAge(age int) error {
	if age < 0 {
		return validationErrorf("age must be a positive number")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT id, name, email, age, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Age, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) GetUserByEmail(email string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT id, name, email, age, password_hash, created_at FROM users WHERE email = ?", email)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Age, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// CreateUser validates the signup fields and creates a new user, hashing
// their password. The password is hashed here and nowhere earlier.
func (s *UserService) CreateUser(name, email, password string, age int) (models.User, error) {
	name, err := validateName(name)
	if err != nil {
		return models.User{}, err
	}
	email, err = validateEmail(email)
	if err != nil {
		return models.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return models.User{}, err
	}
	if err := validateAge(age); err != nil {
		return models.User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Age:          age,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO users(id, name, email, age, password_hash, created_at) VALUES(?, ?, ?, ?, ?, ?)")
	if err != nil {
		return models.User{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(user.ID, user.Name, user.Email, user.Age, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, validationErrorf("email is already in use")
		}
		return models.User{}, err
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == ErrNotFound {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

// UpdateUser applies a partial update. Validation runs for every supplied
// field before anything is written, so a bad value leaves the user
// untouched. A supplied password is re-hashed.
func (s *UserService) UpdateUser(id string, upd UserUpdate) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT id, name, email, age, password_hash, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Age, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}

	if upd.Name != nil {
		name, err := validateName(*upd.Name)
		if err != nil {
			return models.User{}, err
		}
		user.Name = name
	}
	if upd.Email != nil {
		email, err := validateEmail(*upd.Email)
		if err != nil {
			return models.User{}, err
		}
		user.Email = email
	}
	if upd.Age != nil {
		if err := validateAge(*upd.Age); err != nil {
			return models.User{}, err
		}
		user.Age = *upd.Age
	}
	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return models.User{}, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), s.bcryptCost)
		if err != nil {
			return models.User{}, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	_, err = s.db.Exec("UPDATE users SET name = ?, email = ?, age = ?, password_hash = ? WHERE id = ?",
		user.Name, user.Email, user.Age, user.PasswordHash, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, validationErrorf("email is already in use")
		}
		return models.User{}, err
	}

	user.PasswordHash = ""
	return user, nil
}

// DeleteUser removes a user from the database and returns the removed
// account. Sessions and tasks go with it via the schema's cascades.
func (s *UserService) DeleteUser(id string) (models.User, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}
	if _, err := s.db.Exec("DELETE FROM users WHERE id = ?", id); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// IssueToken signs a new session token for a user and records its session row.
func (s *UserService) IssueToken(userID string) (string, error) {
	token, jti, err := s.tokens.Generate(userID)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	sess := models.Session{
		ID:       jti,
		UserID:   userID,
		Token:    token,
		IssuedAt: time.Now().UTC(),
	}
	_, err = s.db.Exec("INSERT INTO sessions(id, user_id, token, issued_at) VALUES(?, ?, ?, ?)",
		sess.ID, sess.UserID, sess.Token, sess.IssuedAt)
	if err != nil {
		return "", err
	}
	return token, nil
}

// RevokeToken removes exactly one session, identified by the token string
// the request authenticated with.
func (s *UserService) RevokeToken(userID, token string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE user_id = ? AND token = ?", userID, token)
	return err
}

// RevokeAllTokens removes every session a user holds.
func (s *UserService) RevokeAllTokens(userID string) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

// ResolveToken returns the user holding a live session for the exact token
// string, or ErrNotFound if the token was never issued or has been revoked.
func (s *UserService) ResolveToken(token string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow(`
		SELECT u.id, u.name, u.email, u.age, u.created_at
		FROM users u
		JOIN sessions s ON s.user_id = u.id
		WHERE s.token = ?`, token)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Age, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// SetAvatar stores the already-processed avatar bytes on the user.
func (s *UserService) SetAvatar(userID string, avatar []byte) error {
	_, err := s.db.Exec("UPDATE users SET avatar = ? WHERE id = ?", avatar, userID)
	return err
}

// ClearAvatar removes the user's avatar.
func (s *UserService) ClearAvatar(userID string) error {
	_, err := s.db.Exec("UPDATE users SET avatar = NULL WHERE id = ?", userID)
	return err
}

// GetAvatar returns the stored avatar bytes. ErrNotFound covers both an
// unknown user and a user without an avatar.
func (s *UserService) GetAvatar(userID string) ([]byte, error) {
	var avatar []byte
	row := s.db.QueryRow("SELECT avatar FROM users WHERE id = ?", userID)
	if err := row.Scan(&avatar); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(avatar) == 0 {
		return nil, ErrNotFound
	}
	return avatar, nil
}
