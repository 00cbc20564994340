package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/moodnote/auth-service/internal/config"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenForge mints and verifies the two signed token families plus the
// opaque single-use tokens. Access and refresh tokens use separate
// secrets; a token signed with one never verifies against the other.
type TokenForge struct {
	config *config.AuthConfig
}

func NewTokenForge(config *config.AuthConfig) *TokenForge {
	return &TokenForge{config: config}
}

func (f *TokenForge) GenerateAccessToken(accountID, email string) (string, error) {
	return f.generate(accountID, email, tokenTypeAccess, f.config.AccessTokenSecret, f.config.AccessTokenDuration)
}

func (f *TokenForge) GenerateRefreshToken(accountID, email string) (string, error) {
	return f.generate(accountID, email, tokenTypeRefresh, f.config.RefreshTokenSecret, f.config.RefreshTokenDuration)
}

func (f *TokenForge) generate(accountID, email, tokenType, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: accountID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (f *TokenForge) VerifyAccessToken(tokenString string) (*Claims, error) {
	return f.verify(tokenString, tokenTypeAccess, f.config.AccessTokenSecret)
}

func (f *TokenForge) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return f.verify(tokenString, tokenTypeRefresh, f.config.RefreshTokenSecret)
}

// verify maps the jwt library's errors onto the closed error set:
// expiry becomes ErrTokenExpired, everything else (bad signature,
// malformed, wrong signing method, wrong type) becomes ErrInvalidToken.
func (f *TokenForge) verify(tokenString, tokenType, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Decode parses without verifying the signature. Debugging only; never
// use the result for an authorization decision.
func (f *TokenForge) Decode(tokenString string) *Claims {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}

// NewVerificationToken returns 256 bits from crypto/rand, hex encoded.
func NewVerificationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewResetCode returns a 6-digit one-time code, uniform over
// [100000, 999999].
func NewResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashResetCode digests a reset code for storage. SHA-256 rather than
// bcrypt: the code is short-lived, single-use and rate-limited, so a
// fast digest is an accepted tradeoff against hashing cost.
func HashResetCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
