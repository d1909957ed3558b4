package batch

import (
	"bytes"
	"context"
	"net/http"
	"picture-same/internal/retry"
	"time"

	"golang.org/x/xerrors"
)

// Callback PATCHes data to callbackURL, retrying gateway errors and dropped
// connections.
func Callback(ctx context.Context, callbackURL string, data []byte) error {
	return callback(ctx, &http.Client{
		Timeout: 10 * time.Second,
		Transport: &retry.Transport{
			Base:          http.DefaultTransport,
			RetryStrategy: retry.NewExponentialBackOff(10*time.Millisecond, 1*time.Second, 3, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}, callbackURL, data)
}

func callback(ctx context.Context, client *http.Client, callbackURL string, data []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPatch, callbackURL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 300 {
		return xerrors.Errorf("callback returned %s", response.Status)
	}
	return nil
}
