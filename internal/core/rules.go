package core

// rules.go holds the reusable field validators that table definitions
// compose into their strategy maps. Every constructor takes the subject used
// in the failure message, e.g. PositiveInt("order key") yields
// "order key must be a positive integer".

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// PositiveInt accepts base-10 integers greater than zero.
func PositiveInt(subject string) Validator {
	return func(v string) string {
		n, ok := parseInt(v)
		if !ok || n <= 0 {
			return subject + " must be a positive integer"
		}
		return ""
	}
}

// NonNegativeInt accepts base-10 integers greater than or equal to zero.
func NonNegativeInt(subject string) Validator {
	return func(v string) string {
		n, ok := parseInt(v)
		if !ok || n < 0 {
			return subject + " must be a non-negative integer"
		}
		return ""
	}
}

// PositiveDecimal accepts decimals greater than zero.
func PositiveDecimal(subject string) Validator {
	return func(v string) string {
		f, ok := parseDecimal(v)
		if !ok || f <= 0 {
			return subject + " must be a positive number"
		}
		return ""
	}
}

// NonNegativeDecimal accepts decimals greater than or equal to zero.
func NonNegativeDecimal(subject string) Validator {
	return func(v string) string {
		f, ok := parseDecimal(v)
		if !ok || f < 0 {
			return subject + " must be a non-negative number"
		}
		return ""
	}
}

// Number accepts any decimal, including negatives (account balances).
func Number(subject string) Validator {
	return func(v string) string {
		if _, ok := parseDecimal(v); !ok {
			return subject + " must be a number"
		}
		return ""
	}
}

// Ratio accepts decimals in the closed range [0, 1].
func Ratio(subject string) Validator {
	return func(v string) string {
		f, ok := parseDecimal(v)
		if !ok || f < 0 || f > 1 {
			return subject + " must be between 0 and 1"
		}
		return ""
	}
}

// ISODate accepts calendar dates written as YYYY-MM-DD.
func ISODate(subject string) Validator {
	return func(v string) string {
		if len(v) != len(DateLayout) {
			return subject + " must be a date in YYYY-MM-DD format"
		}
		if _, err := time.Parse(DateLayout, v); err != nil {
			return subject + " must be a date in YYYY-MM-DD format"
		}
		return ""
	}
}

// MinLength accepts values of at least n characters.
func MinLength(subject string, n int) Validator {
	return func(v string) string {
		if utf8.RuneCountInString(v) < n {
			return fmt.Sprintf("%s must be at least %d characters", subject, n)
		}
		return ""
	}
}

// NonBlankMaxLength accepts values that are not all whitespace and have
// at most n characters.
func NonBlankMaxLength(subject string, n int) Validator {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return subject + " must not be blank"
		}
		if utf8.RuneCountInString(v) > n {
			return fmt.Sprintf("%s must be at most %d characters", subject, n)
		}
		return ""
	}
}

func parseInt(v string) (int64, bool) {
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

// parseDecimal accepts [+-]digits[.digits] only. strconv.ParseFloat alone
// would also take hex floats, exponents, "Inf" and "NaN".
func parseDecimal(v string) (float64, bool) {
	s := v
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	digits, dot := 0, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot:
			dot = true
		default:
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
