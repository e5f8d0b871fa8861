package credentials

import (
	"crypto/rand"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
)

// opaqueTokenBytes is the entropy of verification and reset tokens.
const opaqueTokenBytes = 32

// NewOpaqueToken returns a random hex encoded single-use token. These carry
// no claims: possession plus a matching stored value is the whole check.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate opaque token")
	}
	return hex.EncodeToString(buf), nil
}
