package admin

import (
	"fmt"

	"github.com/artpar/recordbase/ports"
)

// TokenLength is the number of hex characters of a generated admin token.
const TokenLength = 48

// NewToken generates an admin bearer token and the hash to put in
// server.admin.token_hash.
func NewToken(r ports.Random, h ports.Hasher) (token, hash string, err error) {
	token, err = r.String(TokenLength)
	if err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	hashed, err := h.Hash(token)
	if err != nil {
		return "", "", fmt.Errorf("hash token: %w", err)
	}
	return token, string(hashed), nil
}
