package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"freight-backoffice/internal/model"
)

const (
	SudoCookie  = "sudo_token"
	AdminCookie = "admin_token"
	UserCookie  = "user_token"
)

// cookieOrder is the lookup order when a request carries several cookies.
var cookieOrder = []struct {
	name  string
	realm model.Realm
}{
	{SudoCookie, model.RealmSudo},
	{AdminCookie, model.RealmAdmin},
	{UserCookie, model.RealmUser},
}

// Credential is a raw token together with the realm it was presented for.
type Credential struct {
	Token string
	Realm model.Realm
}

type Codec struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCodec(secret string, ttl time.Duration, secureCookies bool) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}

	return &Codec{secret: []byte(secret), ttl: ttl, secure: secureCookies, now: time.Now}, nil
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token asserting {id, role}.
func (c *Codec) Issue(userID string, role string) (string, error) {
	now := c.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   userID,
		"role": strings.ToLower(role),
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  now.Add(c.ttl).Unix(),
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies a token. Every failure, whatever its cause, is reported
// as model.ErrInvalidSession.
func (c *Codec) Decode(raw string) (model.SessionClaim, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.SessionClaim{}, model.ErrInvalidSession
	}

	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return model.SessionClaim{}, model.ErrInvalidSession
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return model.SessionClaim{}, model.ErrInvalidSession
	}

	claim := model.SessionClaim{}
	claim.UserID, _ = claimsMap["id"].(string)
	claim.Role, _ = claimsMap["role"].(string)
	claim.TokenID, _ = claimsMap["jti"].(string)

	if strings.TrimSpace(claim.UserID) == "" || strings.TrimSpace(claim.Role) == "" {
		return model.SessionClaim{}, model.ErrInvalidSession
	}

	return claim, nil
}

// FromRequest extracts the credential: a bearer header wins over cookies,
// then sudo, admin and user cookies are tried in that order.
func FromRequest(r *http.Request) (Credential, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		token := strings.TrimSpace(header[7:])
		if token != "" {
			return Credential{Token: token}, true
		}
	}

	for _, candidate := range cookieOrder {
		cookie, err := r.Cookie(candidate.name)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			continue
		}
		return Credential{Token: cookie.Value, Realm: candidate.realm}, true
	}

	return Credential{}, false
}

func CookieName(realm model.Realm) string {
	switch realm {
	case model.RealmSudo:
		return SudoCookie
	case model.RealmAdmin:
		return AdminCookie
	default:
		return UserCookie
	}
}

// SetCookie writes the session cookie for realm.
func (c *Codec) SetCookie(w http.ResponseWriter, realm model.Realm, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(realm),
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the cookie for realm.
func (c *Codec) ClearCookie(w http.ResponseWriter, realm model.Realm) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(realm),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Codec) ClearAll(w http.ResponseWriter) {
	for _, candidate := range cookieOrder {
		c.ClearCookie(w, candidate.realm)
	}
}
