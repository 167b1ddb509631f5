// Package letters submits print-mail to the letter vendor. One letter
// per call, form-encoded the way the vendor's API expects, with the
// template's merge variables flattened into bracketed keys.
package letters

import (
	"math"
	"strconv"
	"strings"
)

// Recipient is the mailing address a letter goes to. The vendor insists
// on a split first/last name and a structured address; the campaign
// derives both from CRM fields before building a letter.
type Recipient struct {
	FirstName    string
	LastName     string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

// Complete reports whether the recipient can actually receive mail.
// The vendor rejects letters without a name and street; checking here
// turns that into a quarantine instead of a paid API error.
func (r Recipient) Complete() bool {
	return r.FirstName != "" && r.LastName != "" && r.AddressLine1 != ""
}

// MergeVariables are the template substitutions printed on the letter.
// Every field is sent, empty or not; the templates render blanks for
// values that do not apply to their round.
type MergeVariables struct {
	CitationNumber   string
	LastMailDate     string
	Value            string
	PlateNumber      string
	PlateLocation    string
	Make             string
	Model            string
	CitationDate     string
	CitationTime     string
	LotLocation      string
	FirstMailer      string
	SecondMailer     string
	FineAmount       string
	ServiceFee       string
	CitationImageURL string
}

// Letter is one piece of outbound mail.
type Letter struct {
	To       Recipient
	Template string
	Merge    MergeVariables
}

// FormatAmount renders a monetary string the way the letter templates
// print it: zero as "0", whole dollars without cents, anything else
// with two decimals. Values that do not parse pass through unchanged
// so a malformed field shows up on the letter instead of vanishing.
func FormatAmount(raw string) string {
	if raw == "" {
		return ""
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}
	if v == 0 {
		return "0"
	}
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// StripCurrency drops a leading dollar sign from a formatted value.
// The CRM renders opportunity values as "$65.75"; the templates add
// their own currency marks.
func StripCurrency(raw string) string {
	return strings.TrimPrefix(raw, "$")
}
