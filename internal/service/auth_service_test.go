package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wellmind/internal/model"
)

func TestAuthService_Login(t *testing.T) {
	svc := NewAuthService("clinician", "s3cret", "secret")

	for _, creds := range [][2]string{{"clinician", "wrong"}, {"someone", "s3cret"}, {"", ""}} {
		if _, err := svc.Login(creds[0], creds[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) err = %v", creds[0], creds[1], err)
		}
	}

	resp, err := svc.Login("clinician", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.ProfessionalID, "pro_") {
		t.Errorf("professional id = %q", resp.ProfessionalID)
	}
	claims, err := svc.ValidateProfessionalToken(resp.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.ProfessionalID != resp.ProfessionalID {
		t.Errorf("claims id = %q, want %q", claims.ProfessionalID, resp.ProfessionalID)
	}
}

func TestAuthService_TokensAreNotInterchangeable(t *testing.T) {
	svc := NewAuthService("clinician", "s3cret", "secret")

	userToken, err := svc.GenerateUserToken("u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ValidateProfessionalToken(userToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("user token accepted as professional: %v", err)
	}
	claims, err := svc.ValidateUserToken(userToken)
	if err != nil || claims.UserID != "u1" {
		t.Errorf("ValidateUserToken = %+v, %v", claims, err)
	}

	login, _ := svc.Login("clinician", "s3cret")
	if _, err := svc.ValidateUserToken(login.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("professional token accepted as user: %v", err)
	}
}

func TestAuthService_RejectsForeignAndExpiredTokens(t *testing.T) {
	svc := NewAuthService("clinician", "s3cret", "secret")

	other, _ := NewAuthService("clinician", "s3cret", "another-secret").GenerateUserToken("u1")
	if _, err := svc.ValidateUserToken(other); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &model.UserClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}).SignedString([]byte("secret"))
	if _, err := svc.ValidateUserToken(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: %v", err)
	}

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &model.UserClaims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := svc.ValidateUserToken(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg=none token: %v", err)
	}
}
