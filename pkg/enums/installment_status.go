package enums

import "fmt"

// InstallmentStatus tracks whether a single schedule entry was settled.
type InstallmentStatus string

const (
	InstallmentStatusUnpaid InstallmentStatus = "unpaid"
	InstallmentStatusPaid   InstallmentStatus = "paid"
)

var validInstallmentStatuses = []InstallmentStatus{
	InstallmentStatusUnpaid,
	InstallmentStatusPaid,
}

// String implements fmt.Stringer.
func (s InstallmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InstallmentStatus.
func (s InstallmentStatus) IsValid() bool {
	for _, candidate := range validInstallmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInstallmentStatus converts raw input into an InstallmentStatus.
func ParseInstallmentStatus(value string) (InstallmentStatus, error) {
	for _, candidate := range validInstallmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid installment status %q", value)
}
