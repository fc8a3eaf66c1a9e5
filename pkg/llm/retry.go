package llm

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
	llmtypes "github.com/jingkaihe/skillet/pkg/types/llm"
)

// withRetry runs call until it succeeds, fails with an error isRetryable
// rejects, or the configured attempts run out.
func withRetry[T any](ctx context.Context, provider string, config llmtypes.RetryConfig, isRetryable func(error) bool, call func() (T, error)) (T, error) {
	if config.Attempts <= 0 {
		config = llmtypes.DefaultRetryConfig
	}

	var delayType retry.DelayTypeFunc
	switch config.BackoffType {
	case "fixed":
		delayType = retry.FixedDelay
	case "exponential":
		fallthrough
	default:
		delayType = retry.BackOffDelay
	}

	var originalErrors []error
	result, err := retry.DoWithData(
		func() (T, error) {
			r, apiErr := call()
			if apiErr != nil {
				originalErrors = append(originalErrors, apiErr)
			}
			return r, apiErr
		},
		retry.RetryIf(isRetryable),
		retry.Attempts(uint(config.Attempts)),
		retry.Delay(time.Duration(config.InitialDelay)*time.Millisecond),
		retry.MaxDelay(time.Duration(config.MaxDelay)*time.Millisecond),
		retry.DelayType(delayType),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("provider", provider).
				WithField("attempt", n+1).
				WithField("max_attempts", config.Attempts).
				Warn("retrying oracle API call")
		}),
	)

	if err != nil && len(originalErrors) > 1 {
		return result, errors.Wrapf(err, "%s call failed after %d attempts", provider, len(originalErrors))
	}
	return result, err
}

// streamGuard stops retries once any fragment has reached the handler, since
// a retried stream would repeat text the caller already received.
type streamGuard struct {
	handler llmtypes.StreamHandler
	emitted bool
}

func (g *streamGuard) HandleTextDelta(delta string) {
	if delta == "" {
		return
	}
	g.emitted = true
	if g.handler != nil {
		g.handler.HandleTextDelta(delta)
	}
}

func (g *streamGuard) HandleDone() {
	if g.handler != nil {
		g.handler.HandleDone()
	}
}

func (g *streamGuard) retryable(isRetryable func(error) bool) func(error) bool {
	return func(err error) bool {
		return !g.emitted && isRetryable(err)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
