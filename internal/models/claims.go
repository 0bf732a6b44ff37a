package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims are the JWT claims the auth collaborator issues. The ledger
// only needs the user id and role; token issuance lives outside this service.
type UserClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (c *UserClaims) IsAdmin() bool {
	return c.Role == "admin"
}
