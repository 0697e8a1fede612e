package elevenlabs

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the ElevenLabs API endpoint.
const DefaultBaseURL = "https://api.elevenlabs.io"

// Client is an ElevenLabs Conversational AI API client
type Client struct {
	apiKey     string
	agentID    string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new ElevenLabs API client. An empty baseURL selects
// the production endpoint.
func NewClient(apiKey, agentID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		agentID: agentID,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AgentID returns the configured conversational agent ID.
func (c *Client) AgentID() string {
	return c.agentID
}

// GetSignedURL exchanges the agent ID for a short-lived WebSocket connection
// URL. The URL is valid for a single conversation.
func (c *Client) GetSignedURL() (string, error) {
	if c.apiKey == "" || c.agentID == "" {
		return "", fmt.Errorf("ElevenLabs credentials not configured")
	}

	reqURL := fmt.Sprintf("%s/v1/convai/conversation/get_signed_url?agent_id=%s",
		c.baseURL, url.QueryEscape(c.agentID))

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ElevenLabs API error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if result.SignedURL == "" {
		return "", fmt.Errorf("response missing signed_url")
	}

	return result.SignedURL, nil
}
