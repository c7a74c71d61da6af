// Package client, teamchat sunucusunun istemci tarafı: mesaj sözleşmeleri için
// HTTP client (streamsync.MessageService) ve presence WebSocket client'ı.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

// ErrRateLimited, sunucu 429 döndüğünde. Mesaj yeniden denenebilir.
var ErrRateLimited = errors.New("rate limited")

// MessagesClient, tek bir workspace'in mesaj API'sine bearer token ile konuşur.
type MessagesClient struct {
	baseURL     string
	workspaceID string
	token       string
	http        *http.Client
}

// NewMessagesClient, constructor. httpClient nil ise 15s timeout'lu bir client kullanılır.
func NewMessagesClient(baseURL, workspaceID, token string, httpClient *http.Client) *MessagesClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &MessagesClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		workspaceID: workspaceID,
		token:       token,
		http:        httpClient,
	}
}

func (c *MessagesClient) ListMessages(ctx context.Context, channelID, cursor string, limit int) (*models.MessagePage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page models.MessagePage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *MessagesClient) GetThread(ctx context.Context, messageID string) (*models.ThreadListing, error) {
	var listing models.ThreadListing
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(messageID)+"/thread", nil, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *MessagesClient) CreateMessage(ctx context.Context, req models.CreateMessageRequest) (*models.MessageRecord, error) {
	var msg models.MessageRecord
	if err := c.do(ctx, http.MethodPost, "/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *MessagesClient) UpdateMessage(ctx context.Context, req models.UpdateMessageRequest) (*models.UpdateMessageResult, error) {
	body := struct {
		Content string `json:"content"`
	}{Content: req.Content}

	var res models.UpdateMessageResult
	if err := c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(req.MessageID), body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *MessagesClient) ToggleReaction(ctx context.Context, req models.ToggleReactionRequest) (*models.ToggleReactionResult, error) {
	body := struct {
		Emoji string `json:"emoji"`
	}{Emoji: req.Emoji}

	var res models.ToggleReactionResult
	if err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(req.MessageID)+"/reactions", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// envelope, pkg.APIResponse'un istemci tarafı; data geç decode edilir.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *MessagesClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + "/api/workspaces/" + url.PathEscape(c.workspaceID) + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: unexpected response (%d): %v", statusError(resp.StatusCode), resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return fmt.Errorf("%w: %s", statusError(resp.StatusCode), env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError, HTTP status kodunu pkg sentinel error'una geri çevirir.
func statusError(status int) error {
	switch status {
	case http.StatusBadRequest:
		return pkg.ErrBadRequest
	case http.StatusUnauthorized:
		return pkg.ErrUnauthorized
	case http.StatusForbidden:
		return pkg.ErrForbidden
	case http.StatusNotFound:
		return pkg.ErrNotFound
	case http.StatusConflict:
		return pkg.ErrAlreadyExists
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return pkg.ErrInternal
	}
}
