package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token issued to dashboard users. Role holds
// the external tag as issued; the middleware maps it to the internal tag.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller with its internal role.
type Principal struct {
	UserID   string   `json:"userId"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Token    string   `json:"-"`
}
