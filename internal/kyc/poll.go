package kyc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"kycdesk.org/internal/obs"
)

const (
	maxPollAttempts = 5
	pollDelay       = 2 * time.Second

	statusInProgress = "in_progress"
)

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// asyncPoll submits a job with a POST and polls the result endpoint with the
// returned request_id until the first element's status leaves in_progress.
type asyncPoll struct {
	up         *upstream
	flow       string
	submitPath string
	resultPath string
	query      []queryParam
	sleep      sleepFunc
}

func (h *asyncPoll) Execute(ctx context.Context, params Params) (json.RawMessage, error) {
	headers, err := h.up.headers.Bearer(ctx)
	if err != nil {
		return nil, err
	}
	submitted, err := h.up.call(ctx, h.flow, http.MethodPost, h.submitPath, buildQuery(params, h.query), headers)
	if err != nil {
		return nil, err
	}
	requestID := scalarString(firstObject(submitted)["request_id"])
	if requestID == "" {
		return submitted, nil
	}

	sleep := h.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	q := url.Values{}
	q.Set("request_id", requestID)
	log := obs.FromContext(ctx).With().Str("flow", h.flow).Str("provider_request_id", requestID).Logger()
	for attempt := 1; attempt <= maxPollAttempts; attempt++ {
		result, err := h.up.call(ctx, h.flow, http.MethodGet, h.resultPath, q, headers)
		if err != nil {
			return nil, err
		}
		if !inProgress(result) {
			log.Debug().Int("attempt", attempt).Msg("async verification settled")
			return result, nil
		}
		if attempt == maxPollAttempts {
			break
		}
		if err := sleep(ctx, pollDelay); err != nil {
			return nil, fmt.Errorf("%w: poll %s: %v", ErrProviderUnreachable, h.resultPath, err)
		}
	}
	log.Info().Int("attempts", maxPollAttempts).Msg("async verification still in progress")
	return errorPayload(msgPollTimeout), nil
}

// inProgress reports whether the first element of a result array is still pending.
func inProgress(payload json.RawMessage) bool {
	var items []struct {
		Status *string `json:"status"`
	}
	if err := json.Unmarshal(payload, &items); err != nil || len(items) == 0 {
		return false
	}
	return items[0].Status != nil && *items[0].Status == statusInProgress
}
