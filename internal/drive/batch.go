package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"

	"github.com/vaultdrive/vaultdrive/internal/types"
	"github.com/vaultdrive/vaultdrive/internal/utils"
)

// Result is the outcome of one action in a wave. A failed action yields
// its zero value plus the error; failure never escapes the batch.
type Result[T any] struct {
	Value T
	Err   error
}

// RunWaves executes independent actions with a concurrency ceiling,
// waiting for each wave to fully settle before dispatching the next.
// One action failing does not cancel its siblings.
func RunWaves[T any](ctx context.Context, limit int, actions []func(context.Context) (T, error)) []Result[T] {
	if limit <= 0 {
		limit = utils.DefaultConcurrency
	}
	results := make([]Result[T], len(actions))

	for start := 0; start < len(actions); start += limit {
		end := start + limit
		if end > len(actions) {
			end = len(actions)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				value, err := actions[i](ctx)
				results[i] = Result[T]{Value: value, Err: err}
				return nil
			})
		}
		// Actions report failure through their slot, never through the
		// group, so Wait only synchronizes the wave.
		_ = g.Wait()
	}
	return results
}

// batchDeleteMax is the Drive batch endpoint's per-request call limit.
const batchDeleteMax = 100

// DeleteBatch submits one multipart batch request containing an
// independent delete sub-request per id. The call fails only on
// transport failure; per-sub-request statuses are not individually
// inspected, so a silently failed sub-delete is corrected by the next
// pull cycle.
func (c *Client) DeleteBatch(ctx context.Context, reqCtx *types.RequestContext, ids []string) error {
	for start := 0; start < len(ids); start += batchDeleteMax {
		end := start + batchDeleteMax
		if end > len(ids) {
			end = len(ids)
		}
		if err := c.deleteBatchChunk(ctx, reqCtx, ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) deleteBatchChunk(ctx context.Context, reqCtx *types.RequestContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := ExecuteWithRetry(ctx, c, reqCtx, func() (struct{}, error) {
		// The body is consumed per attempt, so it is rebuilt inside the
		// retry closure.
		body, contentType, err := buildBatchDeleteBody(ids)
		if err != nil {
			return struct{}{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, utils.BatchEndpoint, body)
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return struct{}{}, &googleapi.Error{
				Code:   resp.StatusCode,
				Header: resp.Header,
				Body:   string(payload),
			}
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return struct{}{}, nil
	})
	return err
}

func buildBatchDeleteBody(ids []string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for i, id := range ids {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "application/http")
		header.Set("Content-ID", fmt.Sprintf("<delete-%d>", i+1))
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := fmt.Fprintf(part, "DELETE /drive/v3/files/%s HTTP/1.1\r\n\r\n", url.PathEscape(id)); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, "multipart/mixed; boundary=" + writer.Boundary(), nil
}
