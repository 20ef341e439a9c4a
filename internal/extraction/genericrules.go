package extraction

import "regexp"

// genericRule is one (pattern, static confidence) pair. Capture group 1 holds
// the value when defined.
type genericRule struct {
	re         *regexp.Regexp
	confidence float64
}

const amount = `((?:\d{1,3}(?:,\d{3})*|\d+)\.\d{2})`

const dateToken = `(\d{1,4}[/.-]\d{1,2}[/.-]\d{1,4}|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{2,4})`

// genericRules is tried most-specific-first per field; first match wins.
var genericRules = map[string][]genericRule{
	"AccountNumber": {
		{regexp.MustCompile(`(?i)account\s*(?:no|number)\.?\s*[:#]?\s*([A-Z0-9-]{6,20})`), 0.85},
		{regexp.MustCompile(`(?i)\bacct\.?\s*[:#]?\s*([0-9-]{6,20})`), 0.70},
	},
	"BillNumber": {
		{regexp.MustCompile(`(?i)bill\s*(?:no|number)\.?\s*[:#]?\s*([A-Z0-9/-]{3,20})`), 0.85},
	},
	"InvoiceNumber": {
		{regexp.MustCompile(`(?i)invoice\s*(?:no|number|#)\.?\s*[:#]?\s*([A-Z0-9/-]{3,20})`), 0.85},
		{regexp.MustCompile(`(?i)\binv\.?\s*[:#]?\s*([A-Z0-9/-]{3,20})`), 0.65},
	},
	"ReceiptNumber": {
		{regexp.MustCompile(`(?i)receipt\s*(?:no|number|#)\.?\s*[:#]?\s*([A-Z0-9/-]{3,20})`), 0.85},
	},
	"BillDate": {
		{regexp.MustCompile(`(?i)bill\s+date\s*[:]?\s*` + dateToken), 0.85},
		{regexp.MustCompile(`(?i)\bdate\s*[:]?\s*` + dateToken), 0.55},
	},
	"InvoiceDate": {
		{regexp.MustCompile(`(?i)invoice\s+date\s*[:]?\s*` + dateToken), 0.85},
		{regexp.MustCompile(`(?i)\bdate\s*[:]?\s*` + dateToken), 0.55},
	},
	"TransactionDate": {
		{regexp.MustCompile(`(?i)(?:transaction|tx)\s+date\s*[:]?\s*` + dateToken), 0.85},
		{regexp.MustCompile(`(?i)\bdate\s*[:]?\s*` + dateToken), 0.55},
	},
	"StatementDate": {
		{regexp.MustCompile(`(?i)statement\s+date\s*[:]?\s*` + dateToken), 0.85},
	},
	"DueDate": {
		{regexp.MustCompile(`(?i)(?:due\s+date|payment\s+due)\s*[:]?\s*` + dateToken), 0.85},
		{regexp.MustCompile(`(?i)pay\s+(?:by|before)\s*[:]?\s*` + dateToken), 0.70},
	},
	"TotalAmountDue": {
		{regexp.MustCompile(`(?i)total\s+amount\s+due\s*[:]?\s*(?:RM|MYR|USD|SGD|\$)?\s*` + amount), 0.90},
		{regexp.MustCompile(`(?i)amount\s+due\s*[:]?\s*(?:RM|MYR|USD|SGD|\$)?\s*` + amount), 0.80},
		{regexp.MustCompile(`(?i)\btotal\b[^\n]{0,30}?(?:RM|MYR|USD|SGD|\$)?\s*` + amount), 0.60},
	},
	"TotalAmount": {
		{regexp.MustCompile(`(?i)(?:grand\s+)?total\s*(?:amount)?\s*[:]?\s*(?:RM|MYR|USD|SGD|\$)?\s*` + amount), 0.85},
		{regexp.MustCompile(`(?i)\btotal\b[^\n]{0,30}?(?:RM|MYR|USD|SGD|\$)?\s*` + amount), 0.60},
	},
	"Subtotal": {
		{regexp.MustCompile(`(?i)sub[- ]?total\s*[:]?\s*(?:RM|MYR|USD|SGD|\$)?\s*` + amount), 0.85},
	},
	"TaxAmount": {
		{regexp.MustCompile(`(?i)(?:tax|gst|sst|vat)\s*(?:amount)?\s*(?:\(\s*\d+%?\s*\))?\s*[:]?\s*(?:RM|MYR|USD|SGD|\$)?\s*` + amount), 0.80},
	},
	"OpeningBalance": {
		{regexp.MustCompile(`(?i)opening\s+balance\s*[:]?\s*(?:RM|MYR|USD|SGD|\$)?\s*(-?(?:\d{1,3}(?:,\d{3})*|\d+)\.\d{2})`), 0.85},
	},
	"ClosingBalance": {
		{regexp.MustCompile(`(?i)closing\s+balance\s*[:]?\s*(?:RM|MYR|USD|SGD|\$)?\s*(-?(?:\d{1,3}(?:,\d{3})*|\d+)\.\d{2})`), 0.85},
	},
	"ContactPhone": {
		{regexp.MustCompile(`(?i)(?:tel|phone|hotline|careline)\s*(?:no)?\.?\s*[:]?\s*(\+?[\d][\d\s()-]{7,18}\d)`), 0.75},
	},
	"ContactEmail": {
		{regexp.MustCompile(`(?i)(?:e-?mail)\s*[:]?\s*([\w.+-]+@[\w.-]+\.\w{2,})`), 0.85},
		{regexp.MustCompile(`([\w.+-]+@[\w.-]+\.\w{2,})`), 0.60},
	},
}
