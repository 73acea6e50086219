package drive

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/vaultdrive/vaultdrive/internal/logging"
	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// Client wraps the Drive API with retry logic and request shaping
type Client struct {
	service    *drive.Service
	httpClient *http.Client
	pageSize   int64
	maxRetries int
	retryDelay time.Duration
	logger     logging.Logger
}

// ClientConfig tunes the client
type ClientConfig struct {
	PageSize     int64
	MaxRetries   int
	RetryDelayMs int
	Logger       logging.Logger
}

// NewClient creates a new Drive API client. The http.Client must carry
// the same authorization as the Drive service; it is used for the batch
// endpoint, which the generated API surface does not cover.
func NewClient(service *drive.Service, httpClient *http.Client, config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logging.NewNoOpLogger()
	}
	if config.PageSize <= 0 {
		config.PageSize = utils.DefaultPageSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = utils.DefaultMaxRetries
	}
	if config.RetryDelayMs <= 0 {
		config.RetryDelayMs = utils.DefaultRetryDelayMs
	}
	return &Client{
		service:    service,
		httpClient: httpClient,
		pageSize:   config.PageSize,
		maxRetries: config.MaxRetries,
		retryDelay: time.Duration(config.RetryDelayMs) * time.Millisecond,
		logger:     config.Logger,
	}
}

// NewRequestContext creates a request context with a fresh trace ID
func NewRequestContext(phase string, requestType types.RequestType) *types.RequestContext {
	return &types.RequestContext{
		TraceID:     uuid.New().String(),
		Phase:       phase,
		RequestType: requestType,
	}
}

// Service returns the underlying Drive service
func (c *Client) Service() *drive.Service {
	return c.service
}

// ExecuteWithRetry executes an API call with retry logic
func ExecuteWithRetry[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	logger := client.logger.WithTraceID(reqCtx.TraceID)
	logger.Debug("API operation starting",
		logging.F("requestType", reqCtx.RequestType),
		logging.F("phase", reqCtx.Phase),
	)

	start := time.Now()

	for attempt := 0; attempt <= client.maxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			logger.Debug("API operation completed",
				logging.F("duration_ms", time.Since(start).Milliseconds()),
				logging.F("attempts", attempt+1),
			)
			return result, nil
		}

		if !isRetryable(lastErr) {
			logger.Error("API operation failed (non-retryable)",
				logging.F("error", lastErr.Error()),
				logging.F("attempts", attempt+1),
			)
			return result, classifyError(lastErr, reqCtx)
		}

		if attempt < client.maxRetries {
			delay := calculateBackoff(client.retryDelay, attempt, lastErr)
			logger.Warn("API operation failed (retryable)",
				logging.F("attempt", attempt+1),
				logging.F("delay_ms", delay.Milliseconds()),
				logging.F("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	logger.Error("API operation failed after max retries",
		logging.F("attempts", client.maxRetries+1),
		logging.F("error", lastErr.Error()),
	)
	return result, classifyError(lastErr, reqCtx)
}

// isRetryable checks if an error is retryable
func isRetryable(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}

// calculateBackoff calculates the retry delay with exponential backoff
func calculateBackoff(baseDelay time.Duration, attempt int, err error) time.Duration {
	maxDelay := time.Duration(utils.MaxRetryDelayMs) * time.Millisecond

	// Honor Retry-After when the server provides one.
	if apiErr, ok := err.(*googleapi.Error); ok {
		if retryAfter := apiErr.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				delay := time.Duration(seconds) * time.Second
				if delay > maxDelay {
					return maxDelay
				}
				return delay
			}
		}
	}

	delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}

	// Jitter within +/-25% of the delay.
	jitterRange := delay / 4
	jitter := time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
	delay += jitter
	if delay < 0 {
		delay = baseDelay
	}
	return delay
}
