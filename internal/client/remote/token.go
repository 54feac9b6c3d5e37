package remote

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/scenesync/internal/common"
)

type ownerClaims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner_id"`
}

// OwnerFromToken reads the owner id from an access token without verifying
// its signature. Only the server can verify; the CLI needs the id to
// namespace attachments and to tell its own scenes from others'.
func OwnerFromToken(token string) (string, error) {
	claims := &ownerClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", common.ErrInvalidToken
	}
	if claims.OwnerID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.OwnerID, nil
}
