package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/valeclub/valeclub-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	MemberID        uuid.UUID
	EstablishmentID *uuid.UUID
	Role            enums.ActorRole
	JTI             string
}

// AccessTokenClaims represents the typed JWT issued to clients. Operators
// carry the establishment they act for; members and admins do not.
type AccessTokenClaims struct {
	MemberID        uuid.UUID       `json:"member_id"`
	EstablishmentID *uuid.UUID      `json:"establishment_id,omitempty"`
	Role            enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
