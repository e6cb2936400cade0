package validation

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-cardform/pkg/model"
)

// maxExpiryYears bounds how far in the future an expiration date may lie.
const maxExpiryYears = 25

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	ibanPattern  = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

	patternCache sync.Map // string -> *regexp.Regexp (nil when invalid)
)

func check(rule model.Rule, value string, now time.Time) bool {
	switch rule.Kind {
	case model.RuleRequired:
		return strings.TrimSpace(value) != ""
	case model.RuleRegularExpression:
		return matchPattern(rule.Pattern, value)
	case model.RuleLength:
		return checkLength(rule, value)
	case model.RuleLuhn:
		return Luhn(value)
	case model.RuleExpirationDate:
		return checkExpiry(value, now)
	case model.RuleEmailAddress:
		return emailPattern.MatchString(value)
	case model.RuleIBAN:
		return IBAN(value)
	default:
		// unknown rule kinds come from newer resolvers; they never block input
		return true
	}
}

func matchPattern(pattern, value string) bool {
	if cached, ok := patternCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re != nil && re.MatchString(value)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		patternCache.Store(pattern, (*regexp.Regexp)(nil))
		return false
	}
	patternCache.Store(pattern, re)
	return re.MatchString(value)
}

func checkLength(rule model.Rule, value string) bool {
	n := utf8.RuneCountInString(value)
	if rule.MinLength > 0 && n < rule.MinLength {
		return false
	}
	if rule.MaxLength > 0 && n > rule.MaxLength {
		return false
	}
	return true
}

// Luhn reports whether number is a 13-19 digit string passing the Luhn
// checksum.
func Luhn(number string) bool {
	if len(number) < 13 || len(number) > 19 {
		return false
	}
	sum := 0
	alt := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if alt {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alt = !alt
	}
	return sum%10 == 0
}

// checkExpiry accepts MMYY or MMYYYY dates that are not before the current
// month and not more than maxExpiryYears ahead.
func checkExpiry(value string, now time.Time) bool {
	if len(value) != 4 && len(value) != 6 {
		return false
	}
	month, err := strconv.Atoi(value[:2])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	year, err := strconv.Atoi(value[2:])
	if err != nil {
		return false
	}
	if len(value) == 4 {
		year += 2000
	}

	current := now.Year()*12 + int(now.Month()) - 1
	expiry := year*12 + month - 1
	if expiry < current {
		return false
	}
	return expiry <= current+maxExpiryYears*12
}

// IBAN validates an ISO 13616 account number using the mod-97 check. Spaces
// are ignored and letters are case-insensitive.
func IBAN(value string) bool {
	compact := strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value))
	if !ibanPattern.MatchString(compact) {
		return false
	}

	rearranged := compact[4:] + compact[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			digits.WriteString(strconv.Itoa(int(r-'A') + 10))
			continue
		}
		digits.WriteRune(r)
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}
