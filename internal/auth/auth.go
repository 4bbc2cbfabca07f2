package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"slices"
	"strings"
)

const (
	RoleRead  = "read"
	RoleWrite = "write"
)

type Identity struct {
	Name  string
	Roles []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type keyEntry struct {
	key      []byte
	identity Identity
}

// StaticAPIKeyValidator holds keys parsed from configuration, spec format
// "key:name:role|role" with entries separated by commas. Lookup compares
// every configured key in constant time.
type StaticAPIKeyValidator struct {
	entries []keyEntry
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, raw := range strings.Split(spec, ",") {
		entry, err := parseKeyEntry(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		validator.entries = append(validator.entries, entry)
	}

	return validator, nil
}

func parseKeyEntry(raw string) (keyEntry, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return keyEntry{}, fmt.Errorf("invalid static key entry %q: expected key:name:role|role", raw)
	}
	key := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if key == "" || name == "" {
		return keyEntry{}, fmt.Errorf("invalid static key entry %q: empty key/name", raw)
	}

	var roles []string
	for _, role := range strings.Split(parts[2], "|") {
		switch role = strings.TrimSpace(role); role {
		case "":
		case RoleRead, RoleWrite:
			roles = append(roles, role)
		default:
			return keyEntry{}, fmt.Errorf("invalid static key entry %q: unknown role %q", raw, role)
		}
	}
	if len(roles) == 0 {
		return keyEntry{}, fmt.Errorf("invalid static key entry %q: at least one role is required", raw)
	}
	slices.Sort(roles)

	return keyEntry{key: []byte(key), identity: Identity{Name: name, Roles: roles}}, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	candidate := []byte(apiKey)
	var matched Identity
	found := false
	for _, entry := range v.entries {
		if len(entry.key) == len(candidate) && subtle.ConstantTimeCompare(entry.key, candidate) == 1 {
			matched = entry.identity
			found = true
		}
	}
	return matched, found
}
