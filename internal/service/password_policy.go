package service

import (
	"fmt"
	"unicode"

	"github.com/hortafresh/backoffice/internal/config"
)

func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength <= 0 &&
		!policy.RequireUpper &&
		!policy.RequireLower &&
		!policy.RequireNumber &&
		!policy.RequireSpecial {
		return nil
	}

	if policy.MinLength > 0 {
		if len([]rune(password)) < policy.MinLength {
			return fmt.Errorf("%w: need at least %d characters", ErrPasswordPolicy, policy.MinLength)
		}
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	if policy.RequireUpper && !hasUpper {
		return fmt.Errorf("%w: need an uppercase letter", ErrPasswordPolicy)
	}
	if policy.RequireLower && !hasLower {
		return fmt.Errorf("%w: need a lowercase letter", ErrPasswordPolicy)
	}
	if policy.RequireNumber && !hasNumber {
		return fmt.Errorf("%w: need a digit", ErrPasswordPolicy)
	}
	if policy.RequireSpecial && !hasSpecial {
		return fmt.Errorf("%w: need a special character", ErrPasswordPolicy)
	}
	return nil
}
