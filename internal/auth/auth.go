package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tgienger/planx/internal/models"
)

// CookieName is the cookie that carries the session token
const CookieName = "token"

// Password length bounds enforced on registration and password change.
// bcrypt only accepts up to 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// PasswordProblem describes why a password is unacceptable, or returns ""
func PasswordProblem(password string) string {
	switch {
	case len(password) < MinPasswordLength:
		return "Password must be at least 6 characters"
	case len(password) > MaxPasswordLength:
		return "Password must be at most 72 bytes"
	}
	return ""
}

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the JWT payload
type Claims struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens
type Manager struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewManager(secret string, expiresIn time.Duration) *Manager {
	return &Manager{
		secret:    []byte(secret),
		expiresIn: expiresIn,
		now:       time.Now,
	}
}

// TTL is how long issued tokens stay valid
func (m *Manager) TTL() time.Duration {
	return m.expiresIn
}

func (m *Manager) GenerateToken(u *models.User) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:   u.ID,
		UserName: u.UserName,
		Email:    u.Email,
		UserType: u.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(u.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken verifies the signature and expiry of tokenStr
func (m *Manager) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
