/**
 * @description
 * This package provides a client for the Safaricom Daraja API, which fronts
 * M-Pesa B2C disbursements. It encapsulates the logic for obtaining OAuth
 * access tokens, making authenticated HTTP requests, handling request body
 * construction, and parsing responses.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, sync, time: Standard Go libraries.
 */
package darajaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Client is a client for the Daraja API.
type Client struct {
	BaseURL            string
	ConsumerKey        string
	ConsumerSecret     string
	InitiatorName      string
	SecurityCredential string
	ShortCode          string
	ResultURL          string
	QueueTimeoutURL    string
	HTTPClient         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Config carries the settings needed to construct a Client.
type Config struct {
	BaseURL            string
	ConsumerKey        string
	ConsumerSecret     string
	InitiatorName      string
	SecurityCredential string
	ShortCode          string
	ResultURL          string
	QueueTimeoutURL    string
}

// NewClient creates a new Daraja API client.
func NewClient(cfg Config) *Client {
	return &Client{
		BaseURL:            cfg.BaseURL,
		ConsumerKey:        cfg.ConsumerKey,
		ConsumerSecret:     cfg.ConsumerSecret,
		InitiatorName:      cfg.InitiatorName,
		SecurityCredential: cfg.SecurityCredential,
		ShortCode:          cfg.ShortCode,
		ResultURL:          cfg.ResultURL,
		QueueTimeoutURL:    cfg.QueueTimeoutURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// B2CPaymentRequest represents the payload for a Daraja B2C payment request.
type B2CPaymentRequest struct {
	OriginatorConversationID string `json:"OriginatorConversationID"`
	InitiatorName            string `json:"InitiatorName"`
	SecurityCredential       string `json:"SecurityCredential"`
	CommandID                string `json:"CommandID"`
	Amount                   string `json:"Amount"`
	PartyA                   string `json:"PartyA"`
	PartyB                   string `json:"PartyB"`
	Remarks                  string `json:"Remarks"`
	QueueTimeOutURL          string `json:"QueueTimeOutURL"`
	ResultURL                string `json:"ResultURL"`
	Occasion                 string `json:"Occasion,omitempty"`
}

// B2CPaymentResponse is the expected response from the B2C payment endpoint.
type B2CPaymentResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// TransactionStatusRequest represents the payload for a transaction status query.
type TransactionStatusRequest struct {
	Initiator          string `json:"Initiator"`
	SecurityCredential string `json:"SecurityCredential"`
	CommandID          string `json:"CommandID"`
	TransactionID      string `json:"TransactionID"`
	PartyA             string `json:"PartyA"`
	IdentifierType     string `json:"IdentifierType"`
	ResultURL          string `json:"ResultURL"`
	QueueTimeOutURL    string `json:"QueueTimeOutURL"`
	Remarks            string `json:"Remarks"`
}

// TransactionStatusResponse is the synchronous acknowledgement of a status query.
type TransactionStatusResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// ErrorResponse represents an error returned by the Daraja API.
type ErrorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("daraja api error %s: %s", e.ErrorCode, e.ErrorMessage)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// InitiateB2CPayment submits a BusinessPayment command for the given amount
// and recipient and returns the Daraja conversation id that identifies the
// disbursement on the provider side.
func (c *Client) InitiateB2CPayment(ctx context.Context, originatorID, amount, recipientPhone, remarks string) (*B2CPaymentResponse, error) {
	reqPayload := B2CPaymentRequest{
		OriginatorConversationID: originatorID,
		InitiatorName:            c.InitiatorName,
		SecurityCredential:       c.SecurityCredential,
		CommandID:                "BusinessPayment",
		Amount:                   amount,
		PartyA:                   c.ShortCode,
		PartyB:                   recipientPhone,
		Remarks:                  remarks,
		QueueTimeOutURL:          c.QueueTimeoutURL,
		ResultURL:                c.ResultURL,
	}

	var resp B2CPaymentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/mpesa/b2c/v3/paymentrequest", reqPayload, &resp); err != nil {
		return nil, err
	}
	if resp.ResponseCode != "0" {
		return nil, &ErrorResponse{ErrorCode: resp.ResponseCode, ErrorMessage: resp.ResponseDescription}
	}
	return &resp, nil
}

// QueryTransactionStatus submits a TransactionStatusQuery for a previously
// initiated payment. Daraja acknowledges synchronously and delivers the final
// result to the registered ResultURL; the acknowledgement is returned here.
func (c *Client) QueryTransactionStatus(ctx context.Context, providerTransactionID string) (*TransactionStatusResponse, error) {
	reqPayload := TransactionStatusRequest{
		Initiator:          c.InitiatorName,
		SecurityCredential: c.SecurityCredential,
		CommandID:          "TransactionStatusQuery",
		TransactionID:      providerTransactionID,
		PartyA:             c.ShortCode,
		IdentifierType:     "4",
		ResultURL:          c.ResultURL,
		QueueTimeOutURL:    c.QueueTimeoutURL,
		Remarks:            "status query",
	}

	var resp TransactionStatusResponse
	if err := c.doJSON(ctx, http.MethodPost, "/mpesa/transactionstatus/v1/query", reqPayload, &resp); err != nil {
		return nil, err
	}
	if resp.ResponseCode != "0" {
		return nil, &ErrorResponse{ErrorCode: resp.ResponseCode, ErrorMessage: resp.ResponseDescription}
	}
	return &resp, nil
}

// getAccessToken returns a cached OAuth token, refreshing it when it is about
// to expire.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("daraja token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode daraja token response: %w", err)
	}

	c.accessToken = token.AccessToken
	// Tokens last an hour; refresh a minute early.
	c.tokenExpiry = time.Now().Add(59 * time.Minute)
	return c.accessToken, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return err
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.ErrorMessage != "" {
			return &apiErr
		}
		return fmt.Errorf("daraja request to %s failed with status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode daraja response: %w", err)
		}
	}
	return nil
}
