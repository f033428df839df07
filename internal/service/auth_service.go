package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wellmind/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const (
	professionalTokenTTL = 12 * time.Hour
	userTokenTTL         = 24 * time.Hour
)

// AuthService handles professional and user authentication
type AuthService struct {
	username  string
	password  string
	jwtSecret []byte
}

// NewAuthService creates a new auth service
func NewAuthService(username, password, secret string) *AuthService {
	return &AuthService{
		username:  username,
		password:  password,
		jwtSecret: []byte(secret),
	}
}

// Login validates professional credentials and returns a signed token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	professionalID := "pro_" + uuid.New().String()[:8]
	now := time.Now()

	claims := &model.ProfessionalClaims{
		ProfessionalID: professionalID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(professionalTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:          tokenString,
		ProfessionalID: professionalID,
	}, nil
}

// ValidateProfessionalToken validates a professional JWT and returns claims
func (s *AuthService) ValidateProfessionalToken(tokenString string) (*model.ProfessionalClaims, error) {
	claims := &model.ProfessionalClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.ProfessionalID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateUserToken issues a token a patient client uses for assessments and chat
func (s *AuthService) GenerateUserToken(userID string) (string, error) {
	now := time.Now()
	claims := &model.UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(userTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateUserToken validates a user JWT and returns claims
func (s *AuthService) ValidateUserToken(tokenString string) (*model.UserClaims, error) {
	claims := &model.UserClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
