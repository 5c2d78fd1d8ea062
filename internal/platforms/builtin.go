package platforms

import (
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

// Endpoints de probe por defecto.
const (
	YouTubeProbeURL   = "https://www.googleapis.com/youtube/v3/channels?part=id&mine=true"
	LinkedInProbeURL  = "https://api.linkedin.com/v2/userinfo"
	RedditProbeURL    = "https://oauth.reddit.com/api/v1/me"
	PinterestProbeURL = "https://api.pinterest.com/v5/user_account"
	GoogleProbeURL    = "https://openidconnect.googleapis.com/v1/userinfo"

	defaultRedditUserAgent = "connkeeper/1.0"
)

// OAuthClient son las credenciales de la app en un proveedor.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	// TokenURL reemplaza el token endpoint (tests, proxies).
	TokenURL string
}

func (c OAuthClient) configured() bool { return c.ClientID != "" }

// Config configura los proveedores built-in.
type Config struct {
	YouTube         OAuthClient
	LinkedIn        OAuthClient
	RedditUserAgent string

	// ProbeURLs reemplaza URLs de probe por plataforma.
	ProbeURLs map[repository.Platform]string

	// HTTPClient se usa en probes y refresh. nil = http.DefaultClient.
	HTTPClient *http.Client
}

func (c Config) probeURL(p repository.Platform, def string) string {
	if u, ok := c.ProbeURLs[p]; ok && u != "" {
		return u
	}
	return def
}

func oauthConfig(c OAuthClient, ep oauth2.Endpoint) *oauth2.Config {
	if c.TokenURL != "" {
		ep.TokenURL = c.TokenURL
	}
	return &oauth2.Config{ClientID: c.ClientID, ClientSecret: c.ClientSecret, Endpoint: ep}
}

// Builtin arma el registry con los cinco proveedores soportados.
// youtube y linkedin sólo tienen refresh si hay client id configurado.
func Builtin(cfg Config) *Registry {
	client := cfg.HTTPClient
	ua := cfg.RedditUserAgent
	if ua == "" {
		ua = defaultRedditUserAgent
	}

	youtube := Entry{
		Platform: repository.PlatformYouTube,
		Category: "video",
		Probe:    HTTPProbe(client, cfg.probeURL(repository.PlatformYouTube, YouTubeProbeURL), nil),
	}
	if cfg.YouTube.configured() {
		youtube.Refresh = OAuth2Refresh(oauthConfig(cfg.YouTube, endpoints.Google), client)
	}

	linkedin := Entry{
		Platform: repository.PlatformLinkedIn,
		Category: "professional-network",
		Probe:    HTTPProbe(client, cfg.probeURL(repository.PlatformLinkedIn, LinkedInProbeURL), nil),
	}
	if cfg.LinkedIn.configured() {
		linkedin.Refresh = OAuth2Refresh(oauthConfig(cfg.LinkedIn, endpoints.LinkedIn), client)
	}

	return NewRegistry(
		youtube,
		linkedin,
		Entry{
			Platform: repository.PlatformReddit,
			Category: "forum",
			Probe:    HTTPProbe(client, cfg.probeURL(repository.PlatformReddit, RedditProbeURL), map[string]string{"User-Agent": ua}),
		},
		Entry{
			Platform: repository.PlatformPinterest,
			Category: "image-board",
			Probe:    HTTPProbe(client, cfg.probeURL(repository.PlatformPinterest, PinterestProbeURL), nil),
		},
		Entry{
			Platform: repository.PlatformGoogle,
			Category: "identity",
			Probe:    HTTPProbe(client, cfg.probeURL(repository.PlatformGoogle, GoogleProbeURL), nil),
		},
	)
}
