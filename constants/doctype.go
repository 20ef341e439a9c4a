package constants

// DocumentType is the detected class of an ingested document.
type DocumentType string

const (
	DocTypeUtilityBill   DocumentType = "UTILITY_BILL"
	DocTypeInvoice       DocumentType = "INVOICE"
	DocTypeReceipt       DocumentType = "RECEIPT"
	DocTypeBankStatement DocumentType = "BANK_STATEMENT"
	DocTypeUnknown       DocumentType = "UNKNOWN"
)

// DocumentTypes holds every classifiable type, in scoring order.
var DocumentTypes = []DocumentType{
	DocTypeUtilityBill,
	DocTypeInvoice,
	DocTypeReceipt,
	DocTypeBankStatement,
}

// UnknownSupplier is the supplier value when detection finds nothing.
const UnknownSupplier = "Unknown"
