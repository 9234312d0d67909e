// Package auth provides authentication primitives for the hub, including API
// key generation/validation and JWT creation/verification. Two authentication
// methods are supported: JWTs (issued on login, stateless verification) used
// by the admin API, and long-lived application API keys with bcrypt hashing
// used by the ingest API. See internal/middleware/auth.go for the
// request-time authentication logic that uses these primitives.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/oneredboot/orb-integration-hub/internal/db/models"
	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefix is the fixed leading segment of every full key and every
	// redacted display prefix.
	KeyPrefix = "orb_api"

	// KeyRandomLength is the number of random alphanumeric characters in the
	// key body. A full key is "orb_api_{env}_{32 alphanumeric chars}".
	KeyRandomLength = 32

	// DisplayPrefixLength is how many characters of the random body appear in
	// the redacted display prefix, e.g. "orb_api_a1b2****".
	DisplayPrefixLength = 4

	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 12
)

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateAPIKey creates a new random API key scoped to the given environment.
// Returns: full key (shown to the caller exactly once), bcrypt hash (stored),
// and the redacted display prefix (stored, display-safe).
//
// Full key format:        orb_api_{env}_{32 alphanumeric chars}
// Display prefix format:  orb_api_{first 4 chars}****
func GenerateAPIKey(env models.Environment) (key string, hash string, displayPrefix string, err error) {
	body, err := randomAlphanumeric(KeyRandomLength)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate key material: %w", err)
	}

	envTag := strings.ToLower(string(env))
	fullKey := fmt.Sprintf("%s_%s_%s", KeyPrefix, envTag, body)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), BcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash API key: %w", err)
	}

	prefix := fmt.Sprintf("%s_%s****", KeyPrefix, body[:DisplayPrefixLength])
	return fullKey, string(hashBytes), prefix, nil
}

// randomAlphanumeric returns n characters drawn from [a-z0-9] using crypto/rand.
func randomAlphanumeric(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(out), nil
}

// ValidateAPIKey checks if a provided key matches the stored hash
func ValidateAPIKey(providedKey, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(providedKey))
	return err == nil
}

// ExtractBearerToken extracts the credential from an Authorization header.
// Expected format: "Bearer orb_api_production_abc123..." or "Bearer {jwt}".
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", errors.New("credential is empty after Bearer prefix")
	}

	return token, nil
}

// DisplayPrefixFor recomputes the redacted display prefix for a presented
// full key. The prefix is derived from the random body, so it can be used as
// a lookup key to shortlist candidate records before the bcrypt comparison.
// Returns an error if the key does not have the orb_api_{env}_{body} shape.
func DisplayPrefixFor(fullKey string) (string, error) {
	rest, ok := strings.CutPrefix(fullKey, KeyPrefix+"_")
	if !ok {
		return "", errors.New("key does not carry the orb_api prefix")
	}
	_, body, ok := strings.Cut(rest, "_")
	if !ok || len(body) < DisplayPrefixLength {
		return "", errors.New("key body is malformed")
	}
	return fmt.Sprintf("%s_%s****", KeyPrefix, body[:DisplayPrefixLength]), nil
}

// KeyEnvironment parses the environment tag out of a full key string, e.g.
// "orb_api_production_..." → PRODUCTION. Used to narrow the prefix lookup
// during ingest authentication.
func KeyEnvironment(fullKey string) models.Environment {
	rest, ok := strings.CutPrefix(fullKey, KeyPrefix+"_")
	if !ok {
		return models.EnvironmentUnknown
	}
	tag, _, ok := strings.Cut(rest, "_")
	if !ok {
		return models.EnvironmentUnknown
	}
	return models.ParseEnvironment(strings.ToUpper(tag))
}
