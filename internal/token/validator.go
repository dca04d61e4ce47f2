package token

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

import (
	"github.com/golang-jwt/jwt/v5"
)

import (
	"github.com/grocerfind/edge-gateway/internal/config"
)

// Validation failure kinds. All of them render as an authentication rejection
// to the client; they are kept distinct for logging.
var (
	ErrMalformed        = errors.New("malformed authorization header")
	ErrExpired          = errors.New("token has expired")
	ErrSignatureInvalid = errors.New("invalid token")
)

// Kind names the failure class of a validation error for log fields.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	default:
		return "unknown"
	}
}

// Claims is the decoded payload of a verified bearer credential.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

type jwtClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies bearer credentials against the shared secret.
// It is a pure function of header + secret + clock and holds no state.
type Validator struct {
	secret []byte
	algs   []string
}

func NewValidator(cfg config.JWTCfg) *Validator {
	if cfg.Secret == "" {
		panic("token: empty secret")
	}
	return &Validator{
		secret: []byte(cfg.Secret),
		algs:   []string{cfg.Algorithm},
	}
}

// Validate checks an Authorization header value and returns the decoded claims.
// Failures are one of ErrMalformed, ErrExpired, ErrSignatureInvalid.
func (v *Validator) Validate(authHeader string) (Claims, error) {
	raw, err := stripBearer(authHeader)
	if err != nil {
		return Claims{}, err
	}

	var jc jwtClaims
	_, err = jwt.ParseWithClaims(raw, &jc, v.keyFunc, jwt.WithValidMethods(v.algs))
	if err != nil {
		// Expiry wins over signature problems: an expired token is reported
		// as expired even when its signature also fails to verify.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	// A claims set without a subject cannot identify anyone downstream.
	if strings.TrimSpace(jc.Subject) == "" {
		return Claims{}, fmt.Errorf("%w: missing subject claim", ErrSignatureInvalid)
	}

	claims := Claims{
		Subject: jc.Subject,
		Email:   jc.Email,
		Name:    jc.Name,
	}
	if jc.ExpiresAt != nil {
		claims.ExpiresAt = jc.ExpiresAt.Time
	}
	return claims, nil
}

func (v *Validator) keyFunc(t *jwt.Token) (interface{}, error) {
	return v.secret, nil
}

func stripBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: empty header", ErrMalformed)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("%w: missing bearer scheme", ErrMalformed)
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", fmt.Errorf("%w: empty token", ErrMalformed)
	}
	return raw, nil
}
