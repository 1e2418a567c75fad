package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"donex/core/types"
)

// Client is a minimal JSON-RPC client for the node.
type Client struct {
	Endpoint string
	Token    string
	HTTP     *http.Client
}

func NewClient(endpoint, token string) *Client {
	return &Client{
		Endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		Token:    strings.TrimSpace(token),
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Call invokes method with positional params. A JSON-RPC error from the node
// is returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBytes*8))
	if err != nil {
		return nil, err
	}
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("rpc: decode response (status %d): %w", resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		rpcResp.Error.status = resp.StatusCode
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// Subscribe streams committed events until ctx ends or fn returns an error.
// eventTypes optionally narrows the stream.
func (c *Client) Subscribe(ctx context.Context, eventTypes []string, fn func(*types.Event) error) error {
	target, err := url.Parse(c.Endpoint)
	if err != nil {
		return err
	}
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}
	target.Path = strings.TrimRight(target.Path, "/") + "/ws/events"
	if len(eventTypes) > 0 {
		q := target.Query()
		q.Set("type", strings.Join(eventTypes, ","))
		target.RawQuery = q.Encode()
	}
	conn, _, err := websocket.Dial(ctx, target.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
		var evt types.Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("rpc: decode event: %w", err)
		}
		if err := fn(&evt); err != nil {
			return err
		}
	}
}
