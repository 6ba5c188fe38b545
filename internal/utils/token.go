package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned when a cookie token fails signature or
// structural validation, including expiry.
var ErrInvalidToken = errors.New("invalid session token")

// SessionToken is a signed HS256 token carried in the authentication
// cookie. The Token field contains the serialized JWT; Exp stores the
// absolute expiration. The token is the portable half of the login
// state — the sessions table row it references (via the "sid" claim)
// is the revocable half.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims is the identity record extracted from a verified
// cookie token. It mirrors the claims written at login: the numeric
// account id (subject), the login name (both identifier and canonical
// display name), the granted role and the server-side session id.
type SessionClaims struct {
	UserID    uint64 // "sub" – users.id
	Username  string // "uid" – login name
	Name      string // "name" – display name
	Role      string // "role"
	SessionID string // "sid" – sessions.id
}

// NewSessionToken builds and signs an HS256 JWT binding a user identity
// to a server-side session row. ttl controls the "exp" claim and must
// match the expiry stored on the row so both halves age out together.
func NewSessionToken(secret string, userID uint64, username, role, sessionID string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"uid":  username,
		"name": username, // the site shows the login name as the display name
		"role": role,
		"sid":  sessionID,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies the signature and expiry of a cookie token
// and returns the claims it carries. Tokens signed with a different
// method or secret, malformed claims and expired tokens all map to
// ErrInvalidToken; callers treat every failure as "not logged in".
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens using a different algorithm than we issue.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return SessionClaims{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return SessionClaims{}, ErrInvalidToken
	}
	out := SessionClaims{UserID: id}
	if out.Username, _ = claims["uid"].(string); out.Username == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	out.Name, _ = claims["name"].(string)
	out.Role, _ = claims["role"].(string)
	if out.SessionID, _ = claims["sid"].(string); out.SessionID == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return out, nil
}
