package testutils

import (
	"time"

	"github.com/golang-jwt/jwt"
)

var hmacSampleSecret = []byte("my_test_key")

// JwtToken builds a signed token with the given time based claims, resolved against ts.
// UAA tokens are parsed unverified by the client, so the signing key is irrelevant.
func JwtToken(ts TimeSupplier, m ...JwtModifier) string {
	return JwtTokenWithClaims(jwt.MapClaims{}, ts, m...)
}

// JwtTokenWithClaims is JwtToken starting from a set of static claims, e.g. client_id or scope.
func JwtTokenWithClaims(claims jwt.MapClaims, ts TimeSupplier, m ...JwtModifier) string {
	now := ts()
	all := jwt.MapClaims{}
	for k, v := range claims {
		all[k] = v
	}
	for _, f := range m {
		key, val := f(now)
		all[key] = val.Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, all)
	tokenString, err := token.SignedString(hmacSampleSecret)
	if err != nil {
		panic("could not build jwt" + err.Error())
	}
	return tokenString
}

// TimeSupplier returns the reference time of a token.
type TimeSupplier func() time.Time

var now time.Time

func init() {
	now = time.Now()
}

// Now is fixed for the test binary.
func Now() time.Time {
	return now
}

func Epoch() time.Time {
	return time.Unix(0, 0)
}

// JwtModifier returns a claim name and its time value.
type JwtModifier func(time.Time) (string, time.Time)

func IssuedAt(d time.Duration) JwtModifier {
	return func(t time.Time) (string, time.Time) {
		return "iat", t.Add(d)
	}
}

func ExpiresAt(d time.Duration) JwtModifier {
	return func(t time.Time) (string, time.Time) {
		return "exp", t.Add(d)
	}
}
