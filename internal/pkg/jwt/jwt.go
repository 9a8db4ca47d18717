package jwt

import (
	"errors"
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeStaff  = "staff"
	TokenTypeStream = "stream"

	streamTokenLifetime = 5 * time.Minute
)

var ErrInvalidToken = errors.New("invalid token")

// StaffClaims identifies the employee a device is acting for after a PIN check.
type StaffClaims struct {
	EmployeeID string
	ShopID     string
}

type Service interface {
	GenerateStaffToken(employeeID, shopID string) (token string, expiresAt time.Time, err error)
	GenerateStreamToken(shopID, employeeID string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (shopID string, err error)
	StaffClaimsFromMap(claims map[string]interface{}) (StaffClaims, error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeToken(token string)
	IsTokenRevoked(token string) bool
}

type JWTService struct {
	staffExpiration time.Duration
	tokenAuth       *jwtauth.JWTAuth
	revokedTokens   map[string]int64
	mu              sync.RWMutex
	now             func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, staffExpiration time.Duration, acceptableSkewInSec int) Service {
	return &JWTService{
		staffExpiration: staffExpiration,
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil,
			jwt.WithAcceptableSkew(time.Duration(acceptableSkewInSec)*time.Second)),
		revokedTokens: make(map[string]int64),
		now:           time.Now,
	}
}

// GenerateStaffToken issues the short-lived token a tablet or handset carries
// between the PIN screen and the clock or loyalty actions.
func (j *JWTService) GenerateStaffToken(employeeID, shopID string) (token string, expiresAt time.Time, err error) {
	expiresAt = j.now().Add(j.staffExpiration)
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"employee_id": employeeID,
		"shop_id":     shopID,
		"type":        TokenTypeStaff,
		"exp":         expiresAt.Unix(),
	})
	return tokenString, expiresAt, err
}

// GenerateStreamToken issues a token for the supervisor event feed, which
// receives it as a query parameter.
func (j *JWTService) GenerateStreamToken(shopID, employeeID string) (token string, expiresIn int, err error) {
	expiresIn = int(streamTokenLifetime / time.Second)
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"shop_id":     shopID,
		"employee_id": employeeID,
		"type":        TokenTypeStream,
		"exp":         j.now().Add(streamTokenLifetime).Unix(),
	})
	if err != nil {
		return "", 0, err
	}
	return tokenString, expiresIn, nil
}

func (j *JWTService) ValidateStreamToken(tokenString string) (shopID string, err error) {
	if j.IsTokenRevoked(tokenString) {
		return "", ErrInvalidToken
	}
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TokenTypeStream {
		return "", ErrInvalidToken
	}

	shopIDVal, ok := token.Get("shop_id")
	if !ok {
		return "", ErrInvalidToken
	}
	shopID, ok = shopIDVal.(string)
	if !ok || shopID == "" {
		return "", ErrInvalidToken
	}
	return shopID, nil
}

// StaffClaimsFromMap extracts staff claims from a verified token's claim map.
func (j *JWTService) StaffClaimsFromMap(claims map[string]interface{}) (StaffClaims, error) {
	if t, _ := claims["type"].(string); t != TokenTypeStaff {
		return StaffClaims{}, ErrInvalidToken
	}
	employeeID, _ := claims["employee_id"].(string)
	shopID, _ := claims["shop_id"].(string)
	if employeeID == "" || shopID == "" {
		return StaffClaims{}, ErrInvalidToken
	}
	return StaffClaims{EmployeeID: employeeID, ShopID: shopID}, nil
}

func (j *JWTService) RevokeToken(token string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.revokedTokens[token] = j.now().Unix()
}

func (j *JWTService) IsTokenRevoked(token string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[token]
	return revoked
}
