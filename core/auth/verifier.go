// Package auth resolves browser sessions to verified users and decides who may see which page.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core/school"
)

// ErrInvalidSession is returned for every credential that cannot back a session:
// malformed, without expiry, expired, rejected by the backend or carrying an unknown role.
var ErrInvalidSession = errors.New("invalid session")

var (
	errMissingExpiry = errors.New("credential has no expiry")
	errExpired       = errors.New("credential expired")
)

// ProfileFetcher resolves the current credential to the backend profile. *backend.Client is one.
type ProfileFetcher interface {
	Me(ctx context.Context) (school.User, error)
}

// DecodeExpiry reads the exp claim of token. The signature is not verified:
// only the backend holds the key.
func DecodeExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, errors.Wrap(err, "decoding credential")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "reading exp claim")
	}
	if exp == nil {
		return time.Time{}, errMissingExpiry
	}
	return exp.Time, nil
}

// Verifier checks a credential locally, then asks the backend who it belongs to.
type Verifier struct {
	profiles ProfileFetcher
	NowFunc  func() time.Time // mockable
}

func NewVerifier(profiles ProfileFetcher) *Verifier {
	return &Verifier{profiles: profiles, NowFunc: time.Now}
}

// Verify returns the user behind token. Any failure is reported as ErrInvalidSession
// (wrapping the cause) and yields no user.
func (v *Verifier) Verify(ctx context.Context, token string) (SessionUser, error) {
	exp, err := DecodeExpiry(token)
	if err != nil {
		return SessionUser{}, invalid(err)
	}
	if !exp.After(v.NowFunc()) {
		return SessionUser{}, invalid(errExpired)
	}

	profile, err := v.profiles.Me(ctx)
	if err != nil {
		return SessionUser{}, invalid(errors.Wrap(err, "fetching profile"))
	}
	role, err := ParseRole(profile.Role)
	if err != nil {
		return SessionUser{}, invalid(err)
	}
	return SessionUser{
		ID:    profile.ID,
		Name:  profile.Name,
		Email: profile.Email,
		Role:  role,
	}, nil
}

type invalidSession struct {
	cause error
}

func invalid(cause error) error {
	return &invalidSession{cause: cause}
}

func (e *invalidSession) Error() string {
	return ErrInvalidSession.Error() + ": " + e.cause.Error()
}

func (e *invalidSession) Is(target error) bool {
	return target == ErrInvalidSession
}

func (e *invalidSession) Unwrap() error {
	return e.cause
}
