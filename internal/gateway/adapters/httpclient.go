package adapters

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallbiznis/sitebuilder/pkg/telemetry/correlation"
)

const (
	RequestTimeout = 15 * time.Second
	RetryCount     = 2
)

// NewClient returns the resty client shared by remote gateways.
func NewClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(RequestTimeout).
		SetRetryCount(RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
}

// Request starts a request carrying the caller's correlation id.
func Request(ctx context.Context, client *resty.Client) *resty.Request {
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	return client.R().SetContext(ctx).SetHeader(correlation.HeaderName, cid)
}

// SessionRef builds a unique remote reference for one payment attempt.
func SessionRef(orderNumber string, now time.Time) string {
	return orderNumber + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}
