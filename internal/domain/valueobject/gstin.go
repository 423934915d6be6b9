package valueobject

import (
	"fmt"
	"regexp"
	"strings"
)

// GSTIN is a validated Indian Goods and Services Tax identification number.
// Layout: 2-digit state code, 10-character PAN, entity code, the literal 'Z',
// and a base-36 check character computed over the first fourteen characters.
type GSTIN struct {
	value string
}

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)

const gstinAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewGSTIN validates format and checksum and returns the value object.
func NewGSTIN(raw string) (GSTIN, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 15 {
		return GSTIN{}, fmt.Errorf("gstin must be 15 characters, got %d", len(s))
	}
	if !gstinPattern.MatchString(s) {
		return GSTIN{}, fmt.Errorf("gstin %q has invalid format", s)
	}
	if gstinCheckChar(s[:14]) != s[14] {
		return GSTIN{}, fmt.Errorf("gstin %q has invalid checksum", s)
	}
	return GSTIN{value: s}, nil
}

// String returns the canonical uppercase representation.
func (g GSTIN) String() string { return g.value }

// IsZero returns true when the GSTIN has not been initialised.
func (g GSTIN) IsZero() bool { return g.value == "" }

// StateCode returns the two-digit registration state code.
func (g GSTIN) StateCode() string {
	if g.IsZero() {
		return ""
	}
	return g.value[:2]
}

// PAN returns the embedded permanent account number.
func (g GSTIN) PAN() string {
	if g.IsZero() {
		return ""
	}
	return g.value[2:12]
}

// gstinCheckChar computes the mod-36 Luhn-style check character: characters
// are valued in base 36, alternate positions are doubled, and each product
// contributes its base-36 digit sum.
func gstinCheckChar(first14 string) byte {
	sum := 0
	for i := 0; i < len(first14); i++ {
		v := strings.IndexByte(gstinAlphabet, first14[i])
		factor := 1
		if i%2 == 1 {
			factor = 2
		}
		product := v * factor
		sum += product/36 + product%36
	}
	return gstinAlphabet[(36-sum%36)%36]
}
