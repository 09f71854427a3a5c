package cryptofolio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/PaesslerAG/jsonpath"
)

// http utils shared by the scanners and the price resolver

// httpDoer is the slice of http.Client the remote services need. Scanners
// and the price resolver take one of these so tests can stub the transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// jwget performs an HTTP GET request with optional headers and unmarshals
// the JSON response into the provided data structure.
func jwget(client httpDoer, addr string, headers map[string]string, data interface{}) error {
	req, err := http.NewRequest(http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &httpStatusError{URL: addr, Status: resp.Status, StatusCode: resp.StatusCode}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

// jwpost is jwget's POST twin, for JSON-RPC style endpoints.
func jwpost(client httpDoer, addr string, body any, data interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, addr, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &httpStatusError{URL: addr, Status: resp.Status, StatusCode: resp.StatusCode}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

// httpStatusError reports a non-200 response; callers inspect StatusCode to
// tell a rate limit (429) from a hard failure.
type httpStatusError struct {
	URL        string
	Status     string
	StatusCode int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("cannot http GET %v: %v", e.URL, e.Status)
}

// isRateLimited reports whether err is an HTTP 429 response.
func isRateLimited(err error) bool {
	se, ok := err.(*httpStatusError)
	return ok && se.StatusCode == http.StatusTooManyRequests
}

// jqfloat extracts a float64 from a decoded JSON document by jsonpath
// expression.
func jqfloat(jobj any, path string) (float64, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("error parsing %q: %w", path, err)
	}
	// jsonpath is never clear about whether it returns a list of 1 answer,
	// or a single answer: keep the first one if any.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case float64:
		return v, nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err != nil {
			return 0, fmt.Errorf("error parsing %q: not a float: %q", path, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("error parsing %q: not a float: %v", path, jval)
	}
}
