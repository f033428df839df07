package model

import "github.com/golang-jwt/jwt/v5"

// ProfessionalClaims are JWT claims for clinicians reviewing outcomes and alerts
type ProfessionalClaims struct {
	ProfessionalID string `json:"professionalId"`
	jwt.RegisteredClaims
}

// UserClaims are JWT claims for a patient session
type UserClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for professional login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token          string `json:"token"`
	ProfessionalID string `json:"professionalId"`
}
