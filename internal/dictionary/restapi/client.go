// Package restapi implements dictionary.Gateway over the dictionary service's REST API.
package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/at-ishikawa/dictcache/internal/dictionary"
	"github.com/avast/retry-go"
	"resty.dev/v3"
)

const (
	DefaultTimeout          = 10 * time.Second
	DefaultMaxRetryAttempts = 3
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected status")
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is returned when the service answers with an HTTP or envelope error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("response error %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Config configures a Client.
type Config struct {
	BaseURL          string
	Token            string
	Timeout          time.Duration
	MaxRetryAttempts uint
}

// Client calls the dictionary service.
type Client struct {
	httpClient       *resty.Client
	maxRetryAttempts uint
	retryDelay       time.Duration
}

var _ dictionary.Gateway = (*Client)(nil)

func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	if config.Token != "" {
		client.SetAuthToken(config.Token)
	}

	return &Client{
		httpClient:       client,
		maxRetryAttempts: config.MaxRetryAttempts,
		retryDelay:       100 * time.Millisecond,
	}
}

func (client *Client) Close() error {
	return client.httpClient.Close()
}

// isRetryableError reports whether a failed call may succeed when repeated.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}
	// Transport errors such as connection refused or timeouts.
	return true
}

// call sends a request with retries and returns the data of the envelope.
func (client *Client) call(
	ctx context.Context,
	name string,
	send func(req *resty.Request) (*resty.Response, error),
) (json.RawMessage, error) {
	var data json.RawMessage
	err := retry.Do(
		func() error {
			result, err := client.send(ctx, send)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			data = result
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.Delay(client.retryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
		retry.OnRetry(func(n uint, err error) {
			slog.Default().Info("Retrying dictionary API call",
				"endpoint", name,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s > %w", name, err)
	}
	return data, nil
}

func (client *Client) send(
	ctx context.Context,
	send func(req *resty.Request) (*resty.Response, error),
) (json.RawMessage, error) {
	response, err := send(client.httpClient.R().SetContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("httpClient.R > %w", err)
	}
	if response.IsError() {
		return nil, &StatusError{StatusCode: response.StatusCode(), Body: response.String()}
	}

	var envelope Envelope
	if err := json.Unmarshal(response.Bytes(), &envelope); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s) > %w: %w", response.String(), ErrMalformedResponse, err)
	}
	if !envelope.ok() {
		return nil, &StatusError{StatusCode: envelope.Code, Body: envelope.Msg}
	}
	return envelope.Data, nil
}

// FetchDictionary returns the entries of one dictionary. An unknown code yields no entries.
func (client *Client) FetchDictionary(ctx context.Context, code string) ([]dictionary.Entry, error) {
	data, err := client.call(ctx, "GET dict/data/type", func(req *resty.Request) (*resty.Response, error) {
		return req.SetPathParam("dictType", code).Get("/system/dict/data/type/{dictType}")
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return []dictionary.Entry{}, nil
		}
		return nil, err
	}

	var list []DictData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &list); err != nil {
			slog.Default().Warn("unexpected dictionary data shape",
				"code", code,
				"error", err,
			)
			return []dictionary.Entry{}, nil
		}
	}
	return ToEntries(code, list), nil
}

// FetchChanges returns the dictionaries changed since the given time, or all of them.
func (client *Client) FetchChanges(ctx context.Context, since *time.Time) (map[string][]dictionary.Entry, error) {
	data, err := client.call(ctx, "GET dict/data/changes", func(req *resty.Request) (*resty.Response, error) {
		if since != nil {
			req.SetQueryParam("since", strconv.FormatInt(since.UnixMilli(), 10))
		}
		return req.Get("/system/dict/data/changes")
	})
	if err != nil {
		return nil, err
	}
	return client.keyed("changes", data), nil
}

// FetchLabel resolves a label on the server.
func (client *Client) FetchLabel(ctx context.Context, code string, value string) (string, error) {
	data, err := client.call(ctx, "GET dict/data/label", func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetQueryParam("dictType", code).
			SetQueryParam("dictValue", value).
			Get("/system/dict/data/label")
	})
	if err != nil {
		return "", err
	}

	var label ScalarValue
	if err := json.Unmarshal(data, &label); err != nil {
		return "", fmt.Errorf("json.Unmarshal(%s) > %w: %w", string(data), ErrMalformedResponse, err)
	}
	return string(label), nil
}

// FetchTypes returns every dictionary code known to the service.
func (client *Client) FetchTypes(ctx context.Context) ([]string, error) {
	data, err := client.call(ctx, "GET dict/type/codes", func(req *resty.Request) (*resty.Response, error) {
		return req.Get("/system/dict/type/codes")
	})
	if err != nil {
		return nil, err
	}

	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s) > %w: %w", string(data), ErrMalformedResponse, err)
	}
	if codes == nil {
		return nil, fmt.Errorf("dictionary types are missing: %w", ErrMalformedResponse)
	}
	return codes, nil
}

type batchRequest struct {
	DictTypes []string `json:"dictTypes"`
}

// FetchBatch returns the entries of several dictionaries in one round trip.
func (client *Client) FetchBatch(ctx context.Context, codes []string) (map[string][]dictionary.Entry, error) {
	data, err := client.call(ctx, "POST dict/data/batch", func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetBody(batchRequest{DictTypes: codes}).
			Post("/system/dict/data/batch")
	})
	if err != nil {
		return nil, err
	}
	return client.keyed("batch", data), nil
}

func (client *Client) keyed(endpoint string, data json.RawMessage) map[string][]dictionary.Entry {
	result, ok := decodeKeyed(data)
	if !ok {
		slog.Default().Warn("unexpected keyed dictionary data, treating as empty",
			"endpoint", endpoint,
			"data", string(data),
		)
	}
	return result
}
