package constants

// FieldType declares how an extracted value should be validated/normalized.
type FieldType string

const (
	FieldTypeText     FieldType = "TEXT"
	FieldTypeNumber   FieldType = "NUMBER"
	FieldTypeCurrency FieldType = "CURRENCY"
	FieldTypeDate     FieldType = "DATE"
	FieldTypePhone    FieldType = "PHONE"
	FieldTypeEmail    FieldType = "EMAIL"
)

// FieldSource records which strategy produced an extracted value.
type FieldSource string

const (
	SourceLearnedPattern FieldSource = "LEARNED_PATTERN"
	SourceGenericRule    FieldSource = "GENERIC_RULE"
	SourceManual         FieldSource = "MANUAL"
)
