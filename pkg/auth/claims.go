package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mesaops/venue-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. Token
// issuance lives in the auth service; this package only needs the shape for
// verification and for test fixtures.
type AccessTokenPayload struct {
	ActorID uuid.UUID
	VenueID uuid.UUID
	Role    enums.StaffRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT presented by staff callers.
type AccessTokenClaims struct {
	ActorID uuid.UUID       `json:"actor_id"`
	VenueID uuid.UUID       `json:"venue_id"`
	Role    enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller may take corrective override actions.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.StaffRoleAdmin
}
