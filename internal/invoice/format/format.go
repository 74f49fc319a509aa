// Package format renders and parses invoice numbers.
package format

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Invoice numbers read PREFIX-YEAR-SEQUENCE, e.g. KMS-2026-0042. The
// sequence is zero padded to four digits and grows past 9999 unpadded.
var numberPattern = regexp.MustCompile(`^([A-Z][A-Z0-9]*)-(\d{4})-(\d{4,})$`)

var ErrMalformedNumber = errors.New("malformed_invoice_number")

// FormatInvoiceNumber renders the canonical number for a sequence value.
func FormatInvoiceNumber(prefix string, year int, sequence int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, sequence)
}

// ParseInvoiceNumber splits a canonical number back into its parts.
func ParseInvoiceNumber(number string) (prefix string, year int, sequence int64, err error) {
	m := numberPattern.FindStringSubmatch(number)
	if m == nil {
		return "", 0, 0, ErrMalformedNumber
	}
	year, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, 0, ErrMalformedNumber
	}
	sequence, err = strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return "", 0, 0, ErrMalformedNumber
	}
	return m[1], year, sequence, nil
}
