package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikolohq/mikolo/internal/pkg/env"
)

// ChargeStatus is the provider-side status of a mobile money charge.
type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargeCompleted ChargeStatus = "completed"
	ChargeFailed    ChargeStatus = "failed"
)

// ChargeRequest describes a charge to push to the subscriber's handset.
type ChargeRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
	PhoneNumber string `json:"msisdn"`
	ExternalID  string `json:"external_id"`
	Narrative   string `json:"narrative,omitempty"`
}

// InitiateResult is the provider's answer to a charge initiation.
type InitiateResult struct {
	Reference string       `json:"reference"`
	Status    ChargeStatus `json:"status"`
}

// Provider is the mobile money aggregator surface the orchestrator polls.
type Provider interface {
	InitiateCharge(ctx context.Context, req ChargeRequest) (*InitiateResult, error)
	ChargeStatus(ctx context.Context, reference string) (ChargeStatus, error)
}

const defaultAggregatorBaseURL = "https://api.mopay.ug/v1"

// APIClient talks to the mobile money aggregator's REST API.
type APIClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewAPIClientFromEnv builds the aggregator client from environment config.
func NewAPIClientFromEnv() *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(env.GetEnv("PAYMENTS_API_BASE_URL", defaultAggregatorBaseURL), "/"),
		APIKey:  strings.TrimSpace(env.GetEnv("PAYMENTS_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type apiChargeResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

func (c *APIClient) InitiateCharge(ctx context.Context, req ChargeRequest) (*InitiateResult, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("PAYMENTS_API_KEY is not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("initiate charge: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read charge response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("initiate charge: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out apiChargeResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode charge response: %w", err)
	}
	if out.Reference == "" {
		return nil, errors.New("provider response is missing the charge reference")
	}
	return &InitiateResult{Reference: out.Reference, Status: mapProviderStatus(out.Status)}, nil
}

func (c *APIClient) ChargeStatus(ctx context.Context, reference string) (ChargeStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/charges/"+reference, nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("poll charge %s: %w", reference, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read charge status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("poll charge %s: provider returned %d", reference, resp.StatusCode)
	}

	var out apiChargeResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode charge status: %w", err)
	}
	return mapProviderStatus(out.Status), nil
}

func mapProviderStatus(status string) ChargeStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "successful", "success":
		return ChargeCompleted
	case "failed", "rejected", "expired":
		return ChargeFailed
	default:
		return ChargePending
	}
}

// SandboxProvider simulates the aggregator. Outcomes are keyed by the exact
// sandbox number charged, so state machine tests run without a live provider.
type SandboxProvider struct {
	mu      sync.Mutex
	charges map[string]SandboxOutcome
}

// NewSandboxProvider creates an empty simulator.
func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{charges: make(map[string]SandboxOutcome)}
}

func (p *SandboxProvider) InitiateCharge(ctx context.Context, req ChargeRequest) (*InitiateResult, error) {
	_ = ctx
	if !IsSandboxNumber(req.PhoneNumber) {
		return nil, ErrUnknownCarrier
	}
	ref := "sbx-" + uuid.NewString()
	p.mu.Lock()
	p.charges[ref] = SandboxOutcomeFor(req.PhoneNumber)
	p.mu.Unlock()
	return &InitiateResult{Reference: ref, Status: ChargePending}, nil
}

func (p *SandboxProvider) ChargeStatus(ctx context.Context, reference string) (ChargeStatus, error) {
	_ = ctx
	p.mu.Lock()
	outcome, ok := p.charges[reference]
	p.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown sandbox charge %s", reference)
	}
	switch outcome {
	case SandboxOutcomeSuccess:
		return ChargeCompleted, nil
	case SandboxOutcomeFailure:
		return ChargeFailed, nil
	default:
		// Forced timeout: the charge never resolves.
		return ChargePending, nil
	}
}

// NewProviderFromEnv picks the sandbox simulator or the real client based on
// the deployment environment.
func NewProviderFromEnv() Provider {
	if env.IsSandbox() {
		return NewSandboxProvider()
	}
	return NewAPIClientFromEnv()
}
