package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/docufield/constants"
)

const utilityBillText = `TENAGA NASIONAL BERHAD
Account No: 1234567890123
Bill No: INV-2024-001
Bill Date: 15/01/2024
Tariff: A1 Domestic
Usage: 350 kWh
Total Amount Due: RM 245.67`

func TestClassifyType(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType constants.DocumentType
	}{
		{
			name:     "utility bill",
			text:     utilityBillText,
			wantType: constants.DocTypeUtilityBill,
		},
		{
			name: "invoice",
			text: "TAX INVOICE\nInvoice No: 2024-100\nInvoice Date: 01/02/2024\nBill To: Acme\nSubtotal: 100.00\nPayment Terms: NET 30",
			wantType: constants.DocTypeInvoice,
		},
		{
			name: "receipt",
			text: "RECEIPT\nCashier: 04\nItem  Qty\nTotal: 12.50\nCash: 20.00\nChange: 7.50\nThank you",
			wantType: constants.DocTypeReceipt,
		},
		{
			name: "bank statement",
			text: "ACCOUNT STATEMENT\nOpening Balance: 1,000.00\nClosing Balance: 1,250.00\nWithdrawal  Deposit  Transaction Date",
			wantType: constants.DocTypeBankStatement,
		},
		{
			name:     "gibberish is unknown",
			text:     "lorem ipsum dolor sit amet",
			wantType: constants.DocTypeUnknown,
		},
	}

	c := New(0, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, score := c.ClassifyType(tt.text)
			assert.Equal(t, tt.wantType, got)
			if tt.wantType == constants.DocTypeUnknown {
				assert.Less(t, score, DefaultFloor)
			} else {
				assert.GreaterOrEqual(t, score, DefaultFloor)
			}
		})
	}
}

func TestClassifyTypeScoreRange(t *testing.T) {
	c := New(0, nil)
	_, score := c.ClassifyType(utilityBillText)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestDetectSupplier(t *testing.T) {
	c := New(0, nil)

	t.Run("known supplier from signature table", func(t *testing.T) {
		name, conf := c.DetectSupplier(utilityBillText, constants.DocTypeUtilityBill)
		assert.Equal(t, "Tenaga Nasional Berhad", name)
		assert.Equal(t, 0.9, conf)
	})

	t.Run("legal suffix fallback", func(t *testing.T) {
		name, conf := c.DetectSupplier("SYARIKAT CONTOH SDN BHD\nInvoice No: 42", constants.DocTypeInvoice)
		assert.Equal(t, "Syarikat Contoh Sdn Bhd", name)
		assert.Equal(t, 0.5, conf)
	})

	t.Run("no supplier", func(t *testing.T) {
		name, conf := c.DetectSupplier("nothing identifiable here", constants.DocTypeUnknown)
		assert.Equal(t, constants.UnknownSupplier, name)
		assert.Zero(t, conf)
	})
}
