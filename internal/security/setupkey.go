package security

import "golang.org/x/crypto/bcrypt"

// SetupKeyGuard gates the one-time admin-bootstrap endpoint with an
// environment-provided secret. Only the bcrypt hash of the key is kept in
// configuration.
type SetupKeyGuard struct {
	hash []byte
}

func NewSetupKeyGuard(bcryptHash string) *SetupKeyGuard {
	if bcryptHash == "" {
		return &SetupKeyGuard{}
	}
	return &SetupKeyGuard{hash: []byte(bcryptHash)}
}

// Enabled reports whether a setup key is configured at all. A guard without a
// hash rejects every key.
func (g *SetupKeyGuard) Enabled() bool { return len(g.hash) > 0 }

func (g *SetupKeyGuard) Verify(key string) bool {
	if len(g.hash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(key)) == nil
}

// HashSetupKey is used by the CLI to mint a hash for configuration.
func HashSetupKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
