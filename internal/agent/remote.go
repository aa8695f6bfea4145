package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/codestream-ai/codestream/internal/logging"
	"github.com/codestream-ai/codestream/pkg/types"
)

// Remote streams edits from an external agent endpoint over HTTP with SSE.
// The endpoint receives the request as JSON on POST {baseURL}/edit/stream
// and answers with `batch` events carrying EditBatch payloads, terminated by
// a `done` event carrying the Response.
type Remote struct {
	BaseURL string
	Client  *http.Client
	// ConnectTimeout bounds the initial connection retries. Zero means 30s.
	ConnectTimeout time.Duration
}

// NewRemote creates a Remote for baseURL.
func NewRemote(baseURL string) *Remote {
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
	}
}

// StreamEdits connects to the agent endpoint, retrying the initial
// connection with exponential backoff, then decodes streamed batches.
func (r *Remote) StreamEdits(ctx context.Context, req Request, onPartial func(PartialResult)) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var httpResp *http.Response
	connect := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/edit/stream", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := r.Client.Do(httpReq)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			err := fmt.Errorf("agent returned %s", resp.Status)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}
		httpResp = resp
		return nil
	}

	timeout := r.ConnectTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = timeout
	if err := backoff.Retry(connect, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("connect agent: %w", err)
	}
	defer httpResp.Body.Close()

	return r.readStream(ctx, httpResp, onPartial)
}

func (r *Remote) readStream(ctx context.Context, resp *http.Response, onPartial func(PartialResult)) (*Response, error) {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var eventType string
	var final *Response
	for scanner.Scan() {
		if ctx.Err() != nil {
			return final, ctx.Err()
		}
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			switch eventType {
			case "batch":
				var batch types.EditBatch
				if err := json.Unmarshal([]byte(data), &batch); err != nil {
					logging.Warn().Err(err).Msg("agent sent undecodable batch")
					continue
				}
				onPartial(PartialResult{Batch: batch})
			case "done":
				var resp Response
				if err := json.Unmarshal([]byte(data), &resp); err == nil {
					final = &resp
				}
			}
		case line == "":
			eventType = ""
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return final, fmt.Errorf("read agent stream: %w", err)
	}
	return final, nil
}
