package enums

import "fmt"

// BalanceTransactionType maps to the balance_transaction_type enum in Postgres.
type BalanceTransactionType string

const (
	BalanceTransactionTypeSale       BalanceTransactionType = "sale"
	BalanceTransactionTypeReturn     BalanceTransactionType = "return"
	BalanceTransactionTypePayout     BalanceTransactionType = "payout"
	BalanceTransactionTypeAdjustment BalanceTransactionType = "adjustment"
)

var validBalanceTransactionTypes = []BalanceTransactionType{
	BalanceTransactionTypeSale,
	BalanceTransactionTypeReturn,
	BalanceTransactionTypePayout,
	BalanceTransactionTypeAdjustment,
}

// String implements fmt.Stringer.
func (t BalanceTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t BalanceTransactionType) IsValid() bool {
	for _, candidate := range validBalanceTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseBalanceTransactionType converts raw input into BalanceTransactionType.
func ParseBalanceTransactionType(value string) (BalanceTransactionType, error) {
	for _, candidate := range validBalanceTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid balance transaction type %q", value)
}
