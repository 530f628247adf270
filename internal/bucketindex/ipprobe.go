package bucketindex

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// unknownIP is returned whenever the outbound IP diagnostic can't
// complete. It is purely informational (logged at refresh time) and
// must never fail or delay a bucket-index refresh.
const unknownIP = "unknown"

// probeOutboundIP fetches this process's apparent outbound IP from
// ipProvider, trimming the newlines/tabs typical of a plain-text
// ip-echo service. Any failure degrades to "unknown" rather than
// propagating, since this is a diagnostic, not a dependency of the
// bucket index itself.
func probeOutboundIP(ctx context.Context, ipProvider string) string {
	if ipProvider == "" {
		return unknownIP
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ipProvider, nil)
	if err != nil {
		logrus.WithError(err).Debug("ip-probe: building request failed")
		return unknownIP
	}
	req.Header.Set("User-Agent", "curl")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logrus.WithError(err).Debug("ip-probe: request failed")
		return unknownIP
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		logrus.WithError(err).Debug("ip-probe: reading response failed")
		return unknownIP
	}

	ip := strings.Trim(string(body), "\n\t \r")
	if ip == "" {
		return unknownIP
	}
	return ip
}
