package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// MetadataVersion is stamped on every new metadata blob so historical rows
// stay interpretable if the schema evolves.
const MetadataVersion = 1

// Metadata is a closed, versioned union of the per-type details attached to
// a Transaction. Exactly one variant pointer is set, matching the
// transaction type. Stored as JSONB.
type Metadata struct {
	Version int    `json:"version"`
	Gateway string `json:"gateway,omitempty"`

	Deposit         *DepositDetails         `json:"deposit,omitempty"`
	BillPayment     *BillPaymentDetails     `json:"bill_payment,omitempty"`
	Refund          *RefundDetails          `json:"refund,omitempty"`
	VirtualTransfer *VirtualTransferDetails `json:"virtual_transfer,omitempty"`
}

// DepositDetails records a checkout deposit's provenance.
type DepositDetails struct {
	PayerEmail  string `json:"payer_email,omitempty"`
	Channel     string `json:"channel,omitempty"`
	GatewayRef  string `json:"gateway_ref,omitempty"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// BillPaymentDetails records what a bill-payment debit paid for.
type BillPaymentDetails struct {
	Biller     string `json:"biller"`
	CustomerID string `json:"customer_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
}

// RefundDetails links a compensating credit back to the debit it reverses.
type RefundDetails struct {
	OriginalReference string `json:"original_reference"`
	Reason            string `json:"reason,omitempty"`
}

// VirtualTransferDetails records an inbound bank transfer.
type VirtualTransferDetails struct {
	AccountNumber string `json:"account_number"`
	SenderName    string `json:"sender_name,omitempty"`
	SenderBank    string `json:"sender_bank,omitempty"`
}

// Value implements the driver.Valuer interface.
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("metadata: unsupported scan type")
	}
	return json.Unmarshal(bytes, m)
}
