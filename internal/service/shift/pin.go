package shift

import (
	"fmt"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPinHashCost is the bcrypt cost used when none is configured.
const DefaultPinHashCost = 6

// HashPin hashes a 4-digit PIN for storage.
func HashPin(pin string, cost int) (string, error) {
	return hashPin(pin, cost)
}

func hashPin(pin string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hash), nil
}

func pinMatches(hash, pin string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

func newPinError(message string) error {
	return validator.ValidationErrors{
		{Field: "new_pin", Message: message},
	}
}
