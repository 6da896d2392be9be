package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// client talks to a running degd over its JSON API. A cookie jar keeps the
// session across commands so basic auth is only exchanged once.
type client struct {
	base     string
	username string
	password string
	http     *http.Client
}

func newClient(base, username, password string) *client {
	jar, _ := cookiejar.New(nil)
	return &client{
		base:     base,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 60 * time.Second, Jar: jar},
	}
}

func (c *client) do(method, path string, params url.Values, body io.Reader) (*http.Response, error) {
	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, err
	}
	if c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// getJSON issues a GET and decodes the response into out, surfacing API
// error bodies as errors.
func (c *client) getJSON(path string, params url.Values, out interface{}) error {
	resp, err := c.do(http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeAPI(resp, out)
}

func (c *client) postJSON(path string, reqBody, out interface{}) error {
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	resp, err := c.do(http.MethodPost, path, nil, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeAPI(resp, out)
}

// download fetches path into a local file and returns the byte count.
func (c *client) download(path string, params url.Values, dest string) (int64, error) {
	resp, err := c.do(http.MethodGet, path, params, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, apiError(resp)
	}
	f, err := createFile(dest)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(f, resp.Body)
}

func decodeAPI(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s (%s)", body.Error, body.Code)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
