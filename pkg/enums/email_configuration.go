package enums

import "fmt"

// EmailConfigStatus is the stored state of an email provider configuration.
type EmailConfigStatus string

const (
	EmailConfigActive   EmailConfigStatus = "active"
	EmailConfigInactive EmailConfigStatus = "inactive"
)

// IsValid reports whether the value is a known EmailConfigStatus.
func (s EmailConfigStatus) IsValid() bool {
	return s == EmailConfigActive || s == EmailConfigInactive
}

// EmailProvider identifies the delivery backend of a configuration.
type EmailProvider string

const (
	EmailProviderSMTP EmailProvider = "smtp"
	EmailProviderLog  EmailProvider = "log"
)

var validEmailProviders = []EmailProvider{
	EmailProviderSMTP,
	EmailProviderLog,
}

// IsValid reports whether the value is a supported EmailProvider.
func (p EmailProvider) IsValid() bool {
	for _, candidate := range validEmailProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseEmailProvider converts raw input into an EmailProvider.
func ParseEmailProvider(value string) (EmailProvider, error) {
	for _, candidate := range validEmailProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email provider %q", value)
}
