package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaffToken(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute, 30)

	token, expiresAt, err := svc.GenerateStaffToken("emp-1", "shop-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)

	staff, err := svc.StaffClaimsFromMap(claims)
	require.NoError(t, err)
	assert.Equal(t, StaffClaims{EmployeeID: "emp-1", ShopID: "shop-1"}, staff)
}

func TestStaffClaimsFromMapRejectsOtherTypes(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute, 30)

	_, err := svc.StaffClaimsFromMap(map[string]interface{}{
		"type": TokenTypeStream, "employee_id": "e", "shop_id": "s",
	})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.StaffClaimsFromMap(map[string]interface{}{"type": TokenTypeStaff, "shop_id": "s"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStreamToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute, 30)

	token, expiresIn, err := svc.GenerateStreamToken("shop-1", "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	shopID, err := svc.ValidateStreamToken(token)
	require.NoError(t, err)
	assert.Equal(t, "shop-1", shopID)

	staffToken, _, err := svc.GenerateStaffToken("emp-1", "shop-1")
	require.NoError(t, err)
	_, err = svc.ValidateStreamToken(staffToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.RevokeToken(token)
	assert.True(t, svc.IsTokenRevoked(token))
	_, err = svc.ValidateStreamToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStreamTokenWrongSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", time.Minute, 30)
	verifier := NewJWTService("secret-b", time.Minute, 30)

	token, _, err := issuer.GenerateStreamToken("shop-1", "emp-1")
	require.NoError(t, err)
	_, err = verifier.ValidateStreamToken(token)
	assert.Error(t, err)
}
