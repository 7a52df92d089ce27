package payments

import (
	"errors"
	"testing"

	"github.com/mikolohq/mikolo/app/models"
)

func TestNormalizeMSISDN(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "256772123456", want: "256772123456"},
		{in: "+256 772 123 456", want: "256772123456"},
		{in: "0772-123-456", want: "256772123456"},
		{in: "(0772) 123.456", want: "256772123456"},
		{in: "772123456", want: "256772123456"},
		{in: "0750123456", want: "256750123456"},
		{in: "07721234", wantErr: true},
		{in: "notanumber", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeMSISDN(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("NormalizeMSISDN(%q) expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeMSISDN(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("NormalizeMSISDN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectMethod(t *testing.T) {
	tests := []struct {
		msisdn string
		want   string
		ok     bool
	}{
		{msisdn: "256772123456", want: models.PaymentMethodMTN, ok: true},
		{msisdn: "256761234567", want: models.PaymentMethodMTN, ok: true},
		{msisdn: "256781234567", want: models.PaymentMethodMTN, ok: true},
		{msisdn: "256701234567", want: models.PaymentMethodAirtel, ok: true},
		{msisdn: "256741234567", want: models.PaymentMethodAirtel, ok: true},
		{msisdn: "256751234567", want: models.PaymentMethodAirtel, ok: true},
		{msisdn: SandboxSuccessNumber, ok: false},
		{msisdn: "256201234567", ok: false},
	}

	for _, tt := range tests {
		got, ok := DetectMethod(tt.msisdn)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("DetectMethod(%q) = (%q, %t), want (%q, %t)", tt.msisdn, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSandboxOutcomeFor(t *testing.T) {
	if got := SandboxOutcomeFor(SandboxSuccessNumber); got != SandboxOutcomeSuccess {
		t.Fatalf("success number mapped to %v", got)
	}
	if got := SandboxOutcomeFor(SandboxFailureNumber); got != SandboxOutcomeFailure {
		t.Fatalf("failure number mapped to %v", got)
	}
	if got := SandboxOutcomeFor(SandboxTimeoutNumber); got != SandboxOutcomeTimeout {
		t.Fatalf("timeout number mapped to %v", got)
	}
}

func TestValidateNumber(t *testing.T) {
	// Carrier number with matching method passes.
	if err := ValidateNumber("256772123456", models.PaymentMethodMTN, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Carrier mismatch is rejected.
	if err := ValidateNumber("256772123456", models.PaymentMethodAirtel, false); !errors.Is(err, ErrCarrierMismatch) {
		t.Fatalf("expected ErrCarrierMismatch, got %v", err)
	}
	// Unknown prefix is rejected.
	if err := ValidateNumber("256201234567", models.PaymentMethodMTN, false); !errors.Is(err, ErrUnknownCarrier) {
		t.Fatalf("expected ErrUnknownCarrier, got %v", err)
	}
	// Sandbox numbers pass only in sandbox deployments.
	if err := ValidateNumber(SandboxSuccessNumber, models.PaymentMethodMTN, true); err != nil {
		t.Fatalf("sandbox number rejected in sandbox: %v", err)
	}
	if err := ValidateNumber(SandboxSuccessNumber, models.PaymentMethodMTN, false); !errors.Is(err, ErrUnknownCarrier) {
		t.Fatalf("expected sandbox number rejection in production, got %v", err)
	}
}
