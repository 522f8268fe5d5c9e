/**
 * @description
 * This package provides a client for delivering push notifications to the admin
 * device through Firebase Cloud Messaging. It encapsulates the HTTP call so the
 * rest of the service only deals with a device token and a message.
 */
package fcmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// Client is a client for the FCM HTTP API.
type Client struct {
	endpoint   string
	serverKey  string
	httpClient *http.Client
}

// NewClient creates a new FCM client. An empty endpoint falls back to the
// public FCM send URL.
func NewClient(endpoint, serverKey string) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		trimmed = defaultEndpoint
	}
	return &Client{
		endpoint:   trimmed,
		serverKey:  strings.TrimSpace(serverKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendRequest struct {
	To           string            `json:"to"`
	Notification notification      `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type sendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Send delivers a single push notification to the given device token.
func (c *Client) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	if c.serverKey == "" {
		return fmt.Errorf("fcm server key is not configured")
	}
	if strings.TrimSpace(deviceToken) == "" {
		return fmt.Errorf("device token is empty")
	}

	payload := sendRequest{
		To:           deviceToken,
		Notification: notification{Title: title, Body: body},
		Data:         data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to fcm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("fcm returned error status %d", resp.StatusCode)
	}

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Failure > 0 && result.Success == 0 {
		return fmt.Errorf("fcm rejected the message for this token")
	}
	return nil
}
