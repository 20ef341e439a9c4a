package extraction

import "github.com/joseph-ayodele/docufield/constants"

// FieldDef names one standard field and how its value is typed.
type FieldDef struct {
	Name string
	Type constants.FieldType
}

// standardFields is the static lookup of extractable fields per document type.
var standardFields = map[constants.DocumentType][]FieldDef{
	constants.DocTypeUtilityBill: {
		{Name: "AccountNumber", Type: constants.FieldTypeText},
		{Name: "BillNumber", Type: constants.FieldTypeText},
		{Name: "BillDate", Type: constants.FieldTypeDate},
		{Name: "DueDate", Type: constants.FieldTypeDate},
		{Name: "TotalAmountDue", Type: constants.FieldTypeCurrency},
		{Name: "ContactPhone", Type: constants.FieldTypePhone},
	},
	constants.DocTypeInvoice: {
		{Name: "InvoiceNumber", Type: constants.FieldTypeText},
		{Name: "InvoiceDate", Type: constants.FieldTypeDate},
		{Name: "DueDate", Type: constants.FieldTypeDate},
		{Name: "Subtotal", Type: constants.FieldTypeCurrency},
		{Name: "TaxAmount", Type: constants.FieldTypeCurrency},
		{Name: "TotalAmount", Type: constants.FieldTypeCurrency},
		{Name: "ContactEmail", Type: constants.FieldTypeEmail},
	},
	constants.DocTypeReceipt: {
		{Name: "ReceiptNumber", Type: constants.FieldTypeText},
		{Name: "TransactionDate", Type: constants.FieldTypeDate},
		{Name: "TaxAmount", Type: constants.FieldTypeCurrency},
		{Name: "TotalAmount", Type: constants.FieldTypeCurrency},
	},
	constants.DocTypeBankStatement: {
		{Name: "AccountNumber", Type: constants.FieldTypeText},
		{Name: "StatementDate", Type: constants.FieldTypeDate},
		{Name: "OpeningBalance", Type: constants.FieldTypeCurrency},
		{Name: "ClosingBalance", Type: constants.FieldTypeCurrency},
	},
}

// StandardFields returns the field definitions for a document type. Unknown
// types have no standard fields.
func StandardFields(docType constants.DocumentType) []FieldDef {
	return standardFields[docType]
}

// FieldTypeOf resolves a field name's declared type across all document
// types, defaulting to text.
func FieldTypeOf(name string) constants.FieldType {
	for _, defs := range standardFields {
		for _, def := range defs {
			if def.Name == name {
				return def.Type
			}
		}
	}
	return constants.FieldTypeText
}
