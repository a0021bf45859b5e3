package fund

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is one concrete balance-moving instruction.
type Transfer struct {
	FromEnvelopeID string          `json:"fromEnvelopeId" yaml:"fromEnvelopeId"`
	ToEnvelopeID   string          `json:"toEnvelopeId" yaml:"toEnvelopeId"`
	Amount         decimal.Decimal `json:"amount" yaml:"amount"`
	Description    string          `json:"description" yaml:"description"`
	ExecutedAt     time.Time       `json:"executedAt,omitempty" yaml:"executedAt,omitempty"`
}

// Inverse returns the transfer that reverses this one.
func (t Transfer) Inverse() Transfer {
	return Transfer{
		FromEnvelopeID: t.ToEnvelopeID,
		ToEnvelopeID:   t.FromEnvelopeID,
		Amount:         t.Amount,
		Description:    "Undo: " + t.Description,
	}
}

// TransferErrorCode categorizes ledger transfer failures.
type TransferErrorCode string

const (
	// ErrCodeInsufficientFunds indicates the source balance cannot cover
	// the transfer.
	ErrCodeInsufficientFunds TransferErrorCode = "INSUFFICIENT_FUNDS"
	// ErrCodeUnknownEnvelope indicates a transfer endpoint does not exist.
	ErrCodeUnknownEnvelope TransferErrorCode = "UNKNOWN_ENVELOPE"
	// ErrCodeStorageFailure indicates the ledger backend failed.
	ErrCodeStorageFailure TransferErrorCode = "STORAGE_FAILURE"
)

// TransferError is returned by Ledger implementations when a transfer
// cannot be applied.
type TransferError struct {
	Code       TransferErrorCode
	EnvelopeID string
	Message    string
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	if e.EnvelopeID != "" {
		return fmt.Sprintf("%s: %s (envelope=%s)", e.Code, e.Message, e.EnvelopeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTransferError reports whether err is a TransferError with the given code.
// Uses errors.As to handle wrapped errors.
func IsTransferError(err error, code TransferErrorCode) bool {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}
