package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired means the signature checked out but the token is past
	// its expiry. Callers map both failures to "unauthenticated"; logs keep
	// the distinction.
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the identity payload embedded in both token classes.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login hands back. Refresh re-issues only
// the access half.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// JWTer mints and verifies HS256 tokens. The two secrets must be distinct;
// a refresh token must never verify under the access secret or vice versa.
type JWTer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func (j *JWTer) IssueAccess(uid, email string) (string, error) {
	return j.issue(uid, email, j.AccessSecret, j.AccessTTL)
}

func (j *JWTer) IssueRefresh(uid, email string) (string, error) {
	return j.issue(uid, email, j.RefreshSecret, j.RefreshTTL)
}

// IssuePair mints both tokens for the same identity. Either both succeed or
// neither is returned.
func (j *JWTer) IssuePair(uid, email string) (TokenPair, error) {
	access, err := j.IssueAccess(uid, email)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := j.IssueRefresh(uid, email)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (j *JWTer) issue(uid, email string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: uid,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTer) ParseAccess(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, j.AccessSecret)
}

func (j *JWTer) ParseRefresh(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, j.RefreshSecret)
}

func (j *JWTer) parse(tokenStr string, secret []byte) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return secret, nil
	}, jwt.WithIssuer(j.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, ErrTokenInvalid
}
