package session

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password the panel accepts.
const MinPasswordLength = 6

// PasswordStrength is a client-side estimate shown next to password prompts.
// The panel only enforces MinPasswordLength; everything else is advice.
type PasswordStrength struct {
	Score   int     // 0 (very weak) to 4 (very strong)
	Entropy float64 // length * log2(charset)
	Hints   []string
}

var strengthLabels = [...]string{"very weak", "weak", "fair", "strong", "very strong"}

// Label names the score.
func (s PasswordStrength) Label() string {
	if s.Score < 0 || s.Score >= len(strengthLabels) {
		return strengthLabels[0]
	}
	return strengthLabels[s.Score]
}

// CheckPassword rejects passwords the panel would refuse, plus a password
// equal to the account name.
func CheckPassword(password, account string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if account != "" && strings.EqualFold(password, account) {
		return fmt.Errorf("password cannot be the account name")
	}
	return nil
}

// EstimateStrength scores a password by character-class entropy.
func EstimateStrength(password string) PasswordStrength {
	classes := characterClasses(password)
	charset := map[int]int{0: 1, 1: 26, 2: 62, 3: 72, 4: 95}[classes]

	s := PasswordStrength{
		Entropy: float64(len(password)) * math.Log2(float64(charset)),
	}

	switch {
	case s.Entropy >= 70:
		s.Score = 4
	case s.Entropy >= 60:
		s.Score = 3
	case s.Entropy >= 50:
		s.Score = 2
	case s.Entropy >= 40:
		s.Score = 1
	}

	if len(password) < 12 {
		s.Hints = append(s.Hints, "use at least 12 characters")
	}
	if classes < 3 {
		s.Hints = append(s.Hints, "mix upper case, digits and symbols")
	}
	if hasRun(password, 3) {
		s.Hints = append(s.Hints, "avoid repeated or sequential characters")
		if s.Score > 0 {
			s.Score--
		}
	}
	return s
}

func characterClasses(password string) int {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	n := 0
	for _, b := range []bool{lower, upper, digit, symbol} {
		if b {
			n++
		}
	}
	return n
}

// hasRun reports n or more identical or ascending characters in a row
// ("aaa", "123").
func hasRun(password string, n int) bool {
	same, seq := 1, 1
	for i := 1; i < len(password); i++ {
		if password[i] == password[i-1] {
			same++
		} else {
			same = 1
		}
		if password[i] == password[i-1]+1 {
			seq++
		} else {
			seq = 1
		}
		if same >= n || seq >= n {
			return true
		}
	}
	return false
}
