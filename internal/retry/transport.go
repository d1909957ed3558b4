package retry

import (
	"context"
	"net/http"
	"time"
)

// Transport retries round trips according to RetryOn, waiting between
// attempts as RetryStrategy dictates. Requests with a body are only retried
// when the body can be replayed through GetBody.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	for retryCount := uint(0); ; retryCount++ {
		sleep, exceeded := t.retryStrategy().Sleep(retryCount)

		response, err := t.base().RoundTrip(request)
		retriable := !exceeded && t.RetryOn != nil
		if err != nil {
			retriable = retriable && t.RetryOn.CheckError(err)
		} else {
			retriable = retriable && t.RetryOn.CheckResponse(response)
		}

		if !retriable {
			return response, err
		}
		next, ok := rewind(request)
		if !ok {
			return response, err
		}
		if response != nil {
			_ = response.Body.Close()
		}

		if err := wait(request.Context(), sleep); err != nil {
			return nil, err
		}
		request = next
	}
}

func rewind(request *http.Request) (*http.Request, bool) {
	if request.Body == nil || request.Body == http.NoBody {
		return request, true
	}
	if request.GetBody == nil {
		return nil, false
	}

	body, err := request.GetBody()
	if err != nil {
		return nil, false
	}
	next := request.Clone(request.Context())
	next.Body = body
	return next, true
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
