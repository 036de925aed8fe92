package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/rxverify/internal/infrastructure/resilience"
)

// baseScore is the retrieval score given to every live provider hit.
const baseScore = 0.8

const maxBodyBytes = 8 << 20

// restClient is the GET-only transport shared by the provider fetchers.
type restClient struct {
	service    string
	baseURL    string
	header     http.Header
	httpClient *http.Client
	executor   *resilience.Executor
}

func newRESTClient(service, baseURL string, executor *resilience.Executor) *restClient {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &restClient{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		header:     make(http.Header),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

func (c *restClient) getJSON(ctx context.Context, path string, params url.Values, out any, operation string) error {
	body, err := c.get(ctx, path, params, operation)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", c.service, operation, err)
	}
	return nil
}

func (c *restClient) get(ctx context.Context, path string, params url.Values, operation string) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var body []byte
	err := c.executor.Execute(ctx, "sources."+c.service+"."+operation, func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		for key, values := range c.header {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s request: %w", c.service, operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewHTTPStatusError(c.service, operation, resp)
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read %s %s response: %w", c.service, operation, err)
		}
		return nil
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary(c.service+" "+operation, err, resilience.ClassifyHTTPError)
	}
	return body, nil
}

// isNotFound reports a 404, which openFDA and DailyMed use for "no matches".
func isNotFound(err error) bool {
	var statusErr *resilience.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
