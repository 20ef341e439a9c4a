package classifier

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/joseph-ayodele/docufield/constants"
)

type supplierSignature struct {
	name    string
	aliases []string
}

// supplierSignatures is tried in order; first hit wins. Aliases are matched
// case-insensitively as literals.
var supplierSignatures = []supplierSignature{
	{name: "Tenaga Nasional Berhad", aliases: []string{"tenaga nasional", "tnb", "mytnb"}},
	{name: "Syabas", aliases: []string{"syabas", "air selangor", "pengurusan air selangor"}},
	{name: "Telekom Malaysia", aliases: []string{"telekom malaysia", "tm unifi", "unifi"}},
	{name: "Indah Water Konsortium", aliases: []string{"indah water", "iwk"}},
	{name: "Maxis", aliases: []string{"maxis", "hotlink"}},
	{name: "Digi Telecommunications", aliases: []string{"digi.com", "digi telecommunications"}},
	{name: "Celcom", aliases: []string{"celcom axiata", "celcom"}},
	{name: "Maybank", aliases: []string{"maybank", "malayan banking"}},
	{name: "CIMB Bank", aliases: []string{"cimb bank", "cimb"}},
	{name: "Public Bank", aliases: []string{"public bank"}},
}

// legalSuffixRes are generic "Legal Entity Suffix" fallbacks: a capitalized
// name run ending in a corporate-suffix token. Group 1 captures the name.
var legalSuffixRes = []*regexp.Regexp{
	// (?i) because OCR frequently shouts the letterhead in all caps.
	regexp.MustCompile(`(?mi)^\s*([A-Z][A-Za-z0-9&.,'() -]{2,60}?(?:Sdn\.?\s*Bhd\.?|Berhad|Bhd\.?))\s*$`),
	regexp.MustCompile(`(?mi)^\s*([A-Z][A-Za-z0-9&.,'() -]{2,60}?(?:Pte\.?\s*Ltd\.?|Ltd\.?|Limited|LLC|Inc\.?|Corp\.?|GmbH))\s*$`),
}

var titleCaser = cases.Title(language.English)

// DetectSupplier finds the issuing organization: supplier signature table
// first, then legal-entity-suffix regexes, then ("Unknown", 0).
// The document type is accepted for future per-type tables; detection today
// is type-independent.
func (c *Classifier) DetectSupplier(text string, _ constants.DocumentType) (string, float64) {
	lower := strings.ToLower(text)

	for _, sig := range supplierSignatures {
		for _, alias := range sig.aliases {
			if strings.Contains(lower, alias) {
				return sig.name, 0.9
			}
		}
	}

	for _, re := range legalSuffixRes {
		if m := re.FindStringSubmatch(text); m != nil {
			name := canonicalSupplierName(m[1])
			if name != "" {
				c.logger.Debug("classifier.supplier.suffix_fallback", "supplier", name)
				return name, 0.5
			}
		}
	}

	return constants.UnknownSupplier, 0
}

// canonicalSupplierName collapses whitespace and title-cases shouting OCR text.
func canonicalSupplierName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return ""
	}
	// OCR often yields all caps; keep mixed-case names as-is.
	if name == strings.ToUpper(name) {
		name = titleCaser.String(strings.ToLower(name))
	}
	return name
}
