package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes an input that looks like SQL injection.
type InjectionCheckResult struct {
	Field       string // which input failed
	Value       string
	Fingerprint string // libinjection token fingerprint
}

// CheckValueForInjection runs libinjection over a user-supplied value that
// will be embedded in BI backend settings (axis field names, card titles).
// Returns nil for clean input.
func CheckValueForInjection(field, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return &InjectionCheckResult{
			Field:       field,
			Value:       value,
			Fingerprint: string(fingerprint),
		}
	}
	return nil
}

// CheckValues checks each value supplied for field and returns the first hit, or nil.
func CheckValues(field string, values []string) *InjectionCheckResult {
	for _, v := range values {
		if result := CheckValueForInjection(field, v); result != nil {
			return result
		}
	}
	return nil
}
