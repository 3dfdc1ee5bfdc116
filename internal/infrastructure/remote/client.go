package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/resilience"
)

const classifyPath = "/api/v1/archives/classify"

// Client calls the server-side archive analyzer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	policy     resilience.RetryPolicy
}

// Options configures the client. Timeout bounds each HTTP attempt. When an
// Executor is set, its retry policy is trimmed so all backoff fits in half of
// RetryBudget (Timeout when unset).
type Options struct {
	HTTPClient  *http.Client
	Timeout     time.Duration
	RetryBudget time.Duration
	Executor    *resilience.Executor
}

func New(baseURL string, options Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote classifier base url is required")
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		executor:   options.Executor,
	}
	if options.Executor != nil {
		budget := options.RetryBudget
		if budget <= 0 {
			budget = options.Timeout
		}
		client.policy = options.Executor.Policy().FitBudget(budget)
	}
	return client, nil
}

func (c *Client) ClassifyArchive(ctx context.Context, filename string, data []byte) (domain.ClassificationResult, error) {
	var result domain.ClassificationResult
	call := func(callCtx context.Context) error {
		var response domain.ClassificationResult
		if err := c.postArchive(callCtx, classifyPath, filename, data, &response, "classify"); err != nil {
			return err
		}
		result = response
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.ExecuteWithPolicy(ctx, "remote.classify", c.policy, call, classifyRemoteError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.ClassificationResult{}, wrapTemporaryIfNeeded("remote classify", err)
	}
	return result.Normalize(), nil
}
