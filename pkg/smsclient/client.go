/**
 * @description
 * This package provides a client for the SMS gateway used to notify payment
 * recipients. The gateway exposes a single JSON endpoint that accepts a
 * destination number and a message body.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package smsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a client for the SMS gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	SenderID   string
	HTTPClient *http.Client
}

// NewClient creates a new SMS gateway client.
func NewClient(baseURL, apiKey, senderID string) *Client {
	return &Client{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		SenderID: senderID,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// SendSMS delivers a message to the given phone number through the gateway.
func (c *Client) SendSMS(ctx context.Context, phoneNumber, message string) error {
	jsonBody, err := json.Marshal(sendRequest{
		To:      phoneNumber,
		From:    c.SenderID,
		Message: message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		// A malformed body on a 2xx is still a delivery; just report it.
		return fmt.Errorf("sms gateway returned undecodable response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parsed.Error != "" {
			return fmt.Errorf("sms gateway error (status %d): %s", resp.StatusCode, parsed.Error)
		}
		return fmt.Errorf("sms gateway request failed with status %d", resp.StatusCode)
	}
	return nil
}
