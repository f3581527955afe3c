// Package scoring queries the external credit-scoring bureau. The
// integration is optional and controlled by configuration; when disabled
// the provider reports itself as off and is never queried.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lucasvidela94/wallet-service/internal/config"
)

// Provider fetches credit scores over HTTP.
type Provider struct {
	enabled bool
	url     string
	client  *http.Client
	log     *logrus.Logger
}

// NewProvider initializes a new scoring provider
func NewProvider(cfg *config.Config, log *logrus.Logger) *Provider {
	return &Provider{
		enabled: cfg.ScoringEnabled,
		url:     cfg.ScoringURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		log: log,
	}
}

// Enabled reports whether the bureau integration is active.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Score fetches the credit score for an account.
func (p *Provider) Score(ctx context.Context, accountID int64) (int, error) {
	url := fmt.Sprintf("%s?account_id=%d", p.url, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	p.log.Debugf("Bureau score for account %d: %d", accountID, body.Score)

	return body.Score, nil
}
