package platforms

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxProbeBody es cuánto del body se drena para reusar la conexión.
const maxProbeBody = 64 << 10

// HTTPProbe arma un probe GET con Bearer token. Cualquier respuesta no-2xx es Invalid.
func HTTPProbe(client *http.Client, url string, headers map[string]string) ProbeFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, accessToken string) (ProbeResult, error) {
		if accessToken == "" {
			return Invalid("empty access token"), nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return ProbeResult{}, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return ProbeResult{}, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProbeBody))

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return Valid(), nil
		}
		return Invalid(fmt.Sprintf("status %d", resp.StatusCode)), nil
	}
}
