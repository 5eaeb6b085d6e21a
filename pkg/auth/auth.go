package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/care-scheduler-api/pkg/database"
)

var jwtAlgorithm = jwt.SigningMethodHS256

// TokenTTL is how long an admin token stays valid
const TokenTTL = 24 * time.Hour

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserStore is the admin user storage the service needs
type UserStore interface {
	CountUsers(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, user *database.MasterUser) error
}

// Service signs admin tokens and API keys
type Service struct {
	jwtSecret    []byte
	masterSecret []byte
	bcryptCost   int
}

// NewService creates an auth service from the JWT and API key master secrets
func NewService(jwtSecret, masterSecret string) *Service {
	return &Service{
		jwtSecret:    []byte(jwtSecret),
		masterSecret: []byte(masterSecret),
		bcryptCost:   14,
	}
}

// WithBcryptCost overrides the hashing cost, mostly to keep tests fast
func (s *Service) WithBcryptCost(cost int) *Service {
	s.bcryptCost = cost
	return s
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func (s *Service) CreateToken(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(s.jwtSecret)
}

// VerifyToken verifies a JWT token
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// EnsureAdminExists creates the configured admin when no admin user exists yet
func (s *Service) EnsureAdminExists(ctx context.Context, store UserStore, username, password string, logger *zap.Logger) error {
	count, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}

	if err := store.CreateUser(ctx, &database.MasterUser{Username: username, PasswordHash: hash}); err != nil {
		return err
	}
	logger.Info("default admin user created", zap.String("username", username))
	return nil
}

// GenerateHMACKey creates a signed API key using HMAC-SHA256
func (s *Service) GenerateHMACKey(userID string) string {
	return userID + "." + s.sign(userID)
}

// VerifyHMACKey validates an HMAC-signed API key and returns the user id it was issued to
func (s *Service) VerifyHMACKey(key string) (string, error) {
	userID, providedSignature, ok := strings.Cut(key, ".")
	if !ok || userID == "" || strings.Contains(providedSignature, ".") {
		return "", errors.New("invalid key format")
	}

	// Use constant-time comparison to prevent timing attacks
	if !hmac.Equal([]byte(providedSignature), []byte(s.sign(userID))) {
		return "", errors.New("invalid signature")
	}

	return userID, nil
}

func (s *Service) sign(userID string) string {
	h := hmac.New(sha256.New, s.masterSecret)
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))
}
