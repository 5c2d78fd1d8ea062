package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// OAuth2Refresh arma un RefreshFunc sobre golang.org/x/oauth2.
// client (opcional) se usa para la llamada al token endpoint.
func OAuth2Refresh(cfg *oauth2.Config, client *http.Client) RefreshFunc {
	return func(ctx context.Context, id Identity) (*Token, error) {
		if client != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
		}
		// Token sin access token => el TokenSource siempre va al endpoint.
		src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: id.RefreshToken})
		tok, err := src.Token()
		if err != nil {
			var re *oauth2.RetrieveError
			if errors.As(err, &re) {
				reason := re.ErrorCode
				if reason == "" && re.Response != nil {
					reason = fmt.Sprintf("status %d", re.Response.StatusCode)
				}
				return nil, fmt.Errorf("token endpoint rejected refresh: %s", reason)
			}
			return nil, err
		}

		out := &Token{AccessToken: tok.AccessToken, Expiry: tok.Expiry}
		if tok.RefreshToken != "" && tok.RefreshToken != id.RefreshToken {
			out.RefreshToken = tok.RefreshToken
		}
		return out, nil
	}
}
