package payments

import (
	"errors"
	"strings"

	"github.com/mikolohq/mikolo/app/models"
)

// Ugandan MSISDNs. Numbers are stored canonically as 256XXXXXXXXX.
const countryCode = "256"

var (
	ErrInvalidPhone    = errors.New("phone number is not a valid mobile number")
	ErrUnknownCarrier  = errors.New("phone number does not match a supported mobile money carrier")
	ErrCarrierMismatch = errors.New("phone number does not belong to the selected payment method")
)

var carrierPrefixes = map[string]string{
	"76": models.PaymentMethodMTN,
	"77": models.PaymentMethodMTN,
	"78": models.PaymentMethodMTN,
	"70": models.PaymentMethodAirtel,
	"74": models.PaymentMethodAirtel,
	"75": models.PaymentMethodAirtel,
}

// sandboxPrefix is a reserved non-carrier range accepted only in sandbox
// deployments. The final digit of a sandbox number selects the simulated
// provider outcome, which keeps end-to-end tests deterministic.
const sandboxPrefix = "25699"

// Canonical sandbox numbers for the three simulated outcomes.
const (
	SandboxSuccessNumber = "256990000001"
	SandboxFailureNumber = "256990000002"
	SandboxTimeoutNumber = "256990000003"
)

// SandboxOutcome is the simulated provider result for a sandbox number.
type SandboxOutcome int

const (
	SandboxOutcomeFailure SandboxOutcome = iota
	SandboxOutcomeSuccess
	SandboxOutcomeTimeout
)

// NormalizeMSISDN strips separators and the optional country code or trunk
// zero and returns the canonical 12-digit form.
func NormalizeMSISDN(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// separator, drop
		case r == '+' && b.Len() == 0:
			// leading plus, drop
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, countryCode):
		return digits, nil
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:], nil
	case len(digits) == 9:
		return countryCode + digits, nil
	default:
		return "", ErrInvalidPhone
	}
}

// DetectMethod suggests a payment method from the number's carrier prefix.
// Detection is advisory only; an explicit user selection always wins.
func DetectMethod(msisdn string) (string, bool) {
	if len(msisdn) != 12 || !strings.HasPrefix(msisdn, countryCode) {
		return "", false
	}
	method, ok := carrierPrefixes[msisdn[3:5]]
	return method, ok
}

// IsSandboxNumber reports whether the number falls in the reserved test range.
func IsSandboxNumber(msisdn string) bool {
	return len(msisdn) == 12 && strings.HasPrefix(msisdn, sandboxPrefix)
}

// SandboxOutcomeFor maps a sandbox number to its simulated outcome.
func SandboxOutcomeFor(msisdn string) SandboxOutcome {
	switch {
	case msisdn == SandboxSuccessNumber || strings.HasSuffix(msisdn, "1"):
		return SandboxOutcomeSuccess
	case msisdn == SandboxTimeoutNumber || strings.HasSuffix(msisdn, "3"):
		return SandboxOutcomeTimeout
	default:
		return SandboxOutcomeFailure
	}
}

// ValidateNumber checks a normalized number against the selected method.
// Sandbox deployments accept the reserved test range unconditionally.
func ValidateNumber(msisdn, method string, sandbox bool) error {
	if sandbox && IsSandboxNumber(msisdn) {
		return nil
	}
	detected, ok := DetectMethod(msisdn)
	if !ok {
		return ErrUnknownCarrier
	}
	if method != "" && detected != method {
		return ErrCarrierMismatch
	}
	return nil
}
