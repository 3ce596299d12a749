package oidc

import (
	"encoding/base64"
	"errors"

	"github.com/gorilla/securecookie"
)

func generateSessionState() (string, error) {
	return getRandomString(32)
}

func getRandomString(n int) (string, error) {
	bytes := securecookie.GenerateRandomKey(n)
	if bytes == nil {
		return "", errors.New("failed to generate random key")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// mergeScopes merges both lists, keeping the first occurrence order
func mergeScopes(defaultScopes, additionalScopes []string) []string {
	seen := make(map[string]bool, len(defaultScopes)+len(additionalScopes))
	mergedScopes := make([]string, 0, len(defaultScopes)+len(additionalScopes))
	for _, scopes := range [][]string{defaultScopes, additionalScopes} {
		for _, scope := range scopes {
			if seen[scope] {
				continue
			}
			seen[scope] = true
			mergedScopes = append(mergedScopes, scope)
		}
	}
	return mergedScopes
}

func stringClaim(claims map[string]interface{}, key string) string {
	value, _ := claims[key].(string)
	return value
}
