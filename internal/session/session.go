package session

import (
	"context"
	"strings"

	"github.com/omarvelez/fleetdriver-app/pkg/errors"
	redisclient "github.com/omarvelez/fleetdriver-app/pkg/redis"
)

// TokenSource yields the bearer token for the current driver session.
// An absent or empty token is an auth failure before any network call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static returns a fixed token. Used in development and tests.
type Static string

func (s Static) Token(ctx context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", errors.New(errors.CodeUnauthorized, "no active session")
	}
	return token, nil
}

type tokenStore interface {
	Get(ctx context.Context, key string) (string, error)
}

type tokenKeyer interface {
	SessionTokenKey(driverID string) string
}

// RedisSource reads the session token the auth collaborator maintains in redis.
type RedisSource struct {
	store    tokenStore
	keyer    tokenKeyer
	driverID string
}

// NewRedisSource builds a token source scoped to the given driver.
func NewRedisSource(client *redisclient.Client, driverID string) (*RedisSource, error) {
	if client == nil {
		return nil, errors.New(errors.CodeInternal, "redis client is required")
	}
	if strings.TrimSpace(driverID) == "" {
		return nil, errors.New(errors.CodeValidation, "driver id is required")
	}
	return &RedisSource{store: client, keyer: client, driverID: driverID}, nil
}

func (r *RedisSource) Token(ctx context.Context) (string, error) {
	value, err := r.store.Get(ctx, r.keyer.SessionTokenKey(r.driverID))
	if err != nil {
		if redisclient.IsNil(err) {
			return "", errors.New(errors.CodeUnauthorized, "no active session")
		}
		return "", errors.Wrap(errors.CodeInternal, err, "reading session token")
	}
	if strings.TrimSpace(value) == "" {
		return "", errors.New(errors.CodeUnauthorized, "no active session")
	}
	return value, nil
}
