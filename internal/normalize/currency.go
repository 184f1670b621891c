// Package normalize turns scraped text into typed values with a defined
// fallback for input that does not parse.
package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/user/datadesk/internal/domain"
)

// Amount is a parsed monetary value. Valid is false only when the text did not
// parse and the policy is SentinelUnknown.
type Amount struct {
	Value int64
	Valid bool
}

// Currency strips currency symbols, thousands separators and whitespace from
// text and parses the remainder as an integer.
func Currency(text string, policy domain.SentinelPolicy) Amount {
	n, ok := parseCurrency(text)
	if ok {
		return Amount{Value: n, Valid: true}
	}
	if policy == domain.SentinelZero {
		return Amount{Value: 0, Valid: true}
	}
	return Amount{}
}

// CurrencyParser adapts Currency to the extractor's field parser signature.
// Unknown amounts report false so the field stays unset.
func CurrencyParser(policy domain.SentinelPolicy) func(string) (any, bool) {
	return func(text string) (any, bool) {
		a := Currency(text, policy)
		if !a.Valid {
			return nil, false
		}
		return a.Value, true
	}
}

func parseCurrency(text string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, text)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
