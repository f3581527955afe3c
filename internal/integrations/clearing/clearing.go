// Package clearing talks to the simulated clearing house used for external
// transfers. The gateway speaks a small XML protocol over HTTP.
package clearing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lucasvidela94/wallet-service/internal/config"
)

// Client handles integration with the clearing house
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new clearing client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.ClearingURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildRequest creates the XML payload for a transfer submission
func buildRequest(destination, bank, reference string, amount decimal.Decimal) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	req := doc.CreateElement("TransferRequest")
	req.CreateElement("Reference").SetText(reference)
	req.CreateElement("Destination").SetText(destination)
	req.CreateElement("Bank").SetText(bank)
	req.CreateElement("Amount").SetText(amount.StringFixed(2))
	return doc.WriteToBytes()
}

// Submit sends a transfer to the clearing house and returns its
// acknowledgement reference. A non-accepted status is an error.
func (c *Client) Submit(ctx context.Context, destination, bank, reference string, amount decimal.Decimal) (string, error) {
	payload, err := buildRequest(destination, bank, reference, amount)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("Clearing XML response: %s", string(body))

	return parseResponse(body)
}

// parseResponse extracts the acknowledgement from the gateway XML
func parseResponse(rawBody []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return "", fmt.Errorf("failed to parse XML: %w", err)
	}

	statusElement := doc.FindElement("//TransferResponse/Status")
	if statusElement == nil {
		return "", fmt.Errorf("no status in clearing response")
	}
	if statusElement.Text() != "ACCEPTED" {
		reason := ""
		if reasonElement := doc.FindElement("//TransferResponse/Reason"); reasonElement != nil {
			reason = reasonElement.Text()
		}
		return "", fmt.Errorf("clearing rejected transfer: %s %s", statusElement.Text(), reason)
	}

	ackElement := doc.FindElement("//TransferResponse/Ack")
	if ackElement == nil {
		return "", fmt.Errorf("no acknowledgement in clearing response")
	}
	return ackElement.Text(), nil
}
