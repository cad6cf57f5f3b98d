// Package strength scores candidate passwords and decides whether they meet the
// minimum character-class policy.
//
// Score and acceptability are independent: a password can be acceptable with a
// low score (penalised for repeats or common substrings) and vice versa.
package strength

import (
	"strings"
	"unicode/utf8"
)

// MinLength is the shortest password Evaluate will consider.
const MinLength = 8

const (
	longLength  = 12
	maxScore    = 5
	minClasses  = 3
	symbolChars = "!@#$%^&*(),.?\":{}|<>"
)

// Hint texts returned by Evaluate.
const (
	HintTooShort     = "password must be at least 8 characters"
	HintUpper        = "add an uppercase letter"
	HintLower        = "add a lowercase letter"
	HintDigit        = "add a digit"
	HintSymbol       = "add a symbol such as !@#$%^&*"
	HintRepeats      = "avoid repeating the same character three or more times"
	HintCommon       = "password is too common"
	HintClassMinimum = "use at least 3 of: uppercase, lowercase, digits, symbols"
)

var commonSubstrings = []string{"password", "123456", "qwerty", "admin", "letmein"}

// Tier is the qualitative strength bucket.
type Tier string

const (
	VeryWeak   Tier = "very-weak"
	Weak       Tier = "weak"
	Medium     Tier = "medium"
	Strong     Tier = "strong"
	VeryStrong Tier = "very-strong"
)

// Label returns a human readable tier name.
func (t Tier) Label() string {
	switch t {
	case VeryWeak:
		return "Very weak"
	case Weak:
		return "Weak"
	case Medium:
		return "Medium"
	case Strong:
		return "Strong"
	case VeryStrong:
		return "Very strong"
	}
	return ""
}

// Color returns the display colour for the tier as a hex string.
func (t Tier) Color() string {
	switch t {
	case VeryWeak:
		return "#f44336"
	case Weak:
		return "#ff9800"
	case Medium:
		return "#ffc107"
	case Strong:
		return "#8bc34a"
	case VeryStrong:
		return "#4caf50"
	}
	return ""
}

// Result is the outcome of one evaluation.
type Result struct {
	Acceptable bool     `json:"acceptable"`
	Score      int      `json:"score"`
	Tier       Tier     `json:"strength"`
	Hints      []string `json:"hints"`
}

type classes struct {
	upper, lower, digit, symbol bool
}

func (c classes) count() int {
	n := 0
	for _, ok := range []bool{c.upper, c.lower, c.digit, c.symbol} {
		if ok {
			n++
		}
	}
	return n
}

// Evaluate scores password. It never fails; every input yields a Result.
func Evaluate(password string) Result {
	length := utf8.RuneCountInString(password)
	if length < MinLength {
		return Result{Acceptable: false, Score: 0, Tier: VeryWeak, Hints: []string{HintTooShort}}
	}

	hints := []string{}
	score := 1
	if length >= longLength {
		score++
	}

	c := scan(password)
	for _, check := range []struct {
		ok   bool
		hint string
	}{
		{c.upper, HintUpper},
		{c.lower, HintLower},
		{c.digit, HintDigit},
		{c.symbol, HintSymbol},
	} {
		if check.ok {
			score++
		} else {
			hints = append(hints, check.hint)
		}
	}

	if hasRun(password, 3) {
		score--
		hints = append(hints, HintRepeats)
	}

	lowered := strings.ToLower(password)
	for _, s := range commonSubstrings {
		if strings.Contains(lowered, s) {
			score = max(0, score-2)
			hints = append(hints, HintCommon)
			break
		}
	}

	acceptable := c.count() >= minClasses
	if !acceptable && len(hints) == 0 {
		hints = append(hints, HintClassMinimum)
	}

	return Result{
		Acceptable: acceptable,
		Score:      min(maxScore, max(0, score)),
		Tier:       tierFor(score),
		Hints:      hints,
	}
}

// tierFor maps the unclamped score.
func tierFor(score int) Tier {
	switch {
	case score <= 1:
		return VeryWeak
	case score == 2:
		return Weak
	case score == 3:
		return Medium
	case score == 4:
		return Strong
	default:
		return VeryStrong
	}
}

// Class predicates are ASCII-only; other letters count toward length but no class.
func scan(password string) classes {
	var c classes
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= '0' && r <= '9':
			c.digit = true
		case strings.ContainsRune(symbolChars, r):
			c.symbol = true
		}
	}
	return c
}

func hasRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}
