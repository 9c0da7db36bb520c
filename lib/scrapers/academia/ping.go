package academia

import (
	"context"
	"log/slog"
	"time"

	"sdash-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// NewPingClient builds the plain http client used for reachability
// checks. Content pages need a real browser because of the portal's
// client-side rendering, but "is the portal even up" does not.
func NewPingClient(baseUrl string) *resty.Client {
	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 10)

	telemetry.InstrumentResty(client, "scrapers/academia/http")
	return client
}

// PortalReachable reports whether the portal answers at all. Any
// response below 500 counts, the landing page redirects and 4xx
// codes still mean the portal is serving.
func PortalReachable(ctx context.Context, client *resty.Client) bool {
	res, err := client.R().SetContext(ctx).Get("/")
	if err != nil {
		slog.WarnContext(ctx, "portal unreachable", "err", err)
		return false
	}
	return res.StatusCode() < 500
}
