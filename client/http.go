package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"Nottingham/internal/api"
)

// httpGet performs a GET request and decodes the JSON response.
// Error bodies are surfaced in the returned error.
func (c *Client) httpGet(path string, result any) error {
	url := c.baseURL + path

	resp, err := c.http.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var body api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: body.Error}
		}
		return &StatusError{Code: resp.StatusCode}
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
