package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Hasher wraps bcrypt with a configurable cost. The cost is chosen so a
// single hash takes on the order of 100-300ms; hashing therefore always
// happens outside store transactions.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(bytes), err
}

// Verify is constant-time with respect to the password contents;
// bcrypt's comparison does not short-circuit.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// policyRules run in order; the first failing rule names the violation.
// Keeping them as a list lets tests target each rule independently.
var policyRules = []struct {
	name    string
	message string
	ok      func(string) bool
}{
	{
		name:    "min_length",
		message: "must be at least 8 characters long",
		ok:      func(p string) bool { return len(p) >= 8 },
	},
	{
		name:    "common_password",
		message: "is too common, choose a stronger password",
		ok:      func(p string) bool { return !commonPasswords[strings.ToLower(p)] },
	},
	{
		name:    "uppercase",
		message: "must contain at least one uppercase letter",
		ok:      func(p string) bool { return strings.IndexFunc(p, unicode.IsUpper) >= 0 },
	},
	{
		name:    "lowercase",
		message: "must contain at least one lowercase letter",
		ok:      func(p string) bool { return strings.IndexFunc(p, unicode.IsLower) >= 0 },
	},
	{
		name:    "digit",
		message: "must contain at least one digit",
		ok:      func(p string) bool { return strings.IndexFunc(p, unicode.IsDigit) >= 0 },
	},
	{
		name:    "symbol",
		message: "must contain at least one special character",
		ok:      func(p string) bool { return strings.ContainsAny(p, passwordSymbols) },
	},
}

var commonPasswords = map[string]bool{
	"password":    true,
	"password123": true,
	"12345678":    true,
	"qwerty":      true,
	"abc123":      true,
	"monkey":      true,
	"1234567":     true,
	"letmein":     true,
	"trustno1":    true,
	"dragon":      true,
	"baseball":    true,
	"iloveyou":    true,
	"master":      true,
	"sunshine":    true,
	"ashley":      true,
	"bailey":      true,
	"passw0rd":    true,
	"shadow":      true,
	"123123":      true,
	"654321":      true,
}

// ValidatePassword returns a *PolicyViolation (wrapping ErrWeakPassword)
// for the first rule the candidate fails, or nil if it passes all rules.
func ValidatePassword(password string) error {
	for _, rule := range policyRules {
		if !rule.ok(password) {
			return &PolicyViolation{Rule: rule.name, Message: rule.message}
		}
	}
	return nil
}
