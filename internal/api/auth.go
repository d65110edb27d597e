package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"skirental/internal/config"
	"skirental/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	apiKeyHeaderDefault   = "x-api-key"
	apiExtraHeaderDefault = "x-api-extra"
	sessionHeaderDefault  = "x-session-id"
	clientKeyUnknown      = "unknown"
	employerContextKey    = "employer"
	clientNameContextKey  = "api_client"
	permissionReadPrefix  = "read:"
	permissionWritePrefix = "write:"
	apiPathPrefix         = "/api/v1/"
)

var (
	errMissingHeaders   = errors.New("missing api key headers")
	errInvalidAPIKey    = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
	errNoEmployer       = errors.New("request is not bound to an employer")
)

// EmployerLookup resolves the employer an API key acts for.
type EmployerLookup interface {
	Employer(ctx context.Context, id int64) (*models.Employer, error)
}

// HTTPAuth checks the API key pair, binds the request to the key's employer and applies
// the per-key rate limit.
type HTTPAuth struct {
	cfg       config.APIAuthConfig
	clients   map[string]config.APIClientKey
	employers EmployerLookup
	limiter   *rateLimiter
	logger    *zerolog.Logger
}

func NewHTTPAuth(cfg config.APIConfig, employers EmployerLookup, logger *zerolog.Logger) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{
		cfg:       cfg.Auth,
		clients:   m,
		employers: employers,
		limiter:   newRateLimiter(cfg.RateLimit),
		logger:    logger,
	}
}

func (a *HTTPAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.cfg.Enabled {
			client, err := a.checkAuth(c.Request)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					status = http.StatusForbidden
				}
				abortError(c, status, err.Error())
				return
			}

			employer, err := a.employers.Employer(c.Request.Context(), client.EmployerID)
			if err != nil {
				a.logger.Error().Err(err).Str("client", client.Name).Int64("employer_id", client.EmployerID).Msg("API key employer lookup failed")
				abortError(c, http.StatusUnauthorized, errNoEmployer.Error())
				return
			}
			c.Set(employerContextKey, employer)
			c.Set(clientNameContextKey, client.Name)
		}

		if !a.limiter.allow(a.clientKey(c)) {
			abortError(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		c.Next()
	}
}

func (a *HTTPAuth) checkAuth(r *http.Request) (config.APIClientKey, error) {
	apiKey := strings.TrimSpace(r.Header.Get(headerName(a.cfg.HeaderAPIKey, apiKeyHeaderDefault)))
	extra := strings.TrimSpace(r.Header.Get(headerName(a.cfg.HeaderExtra, apiExtraHeaderDefault)))
	if apiKey == "" || extra == "" {
		return config.APIClientKey{}, errMissingHeaders
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return config.APIClientKey{}, errInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return config.APIClientKey{}, errInvalidExtra
	}

	if err := checkPermissions(client, r); err != nil {
		return config.APIClientKey{}, err
	}
	return client, nil
}

// checkPermissions treats an empty permission list as allow-all.
func checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" || len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

// requiredPermission is read:<resource> for GET and write:<resource> otherwise, where the
// resource is the first path segment below /api/v1.
func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, apiPathPrefix) {
		return ""
	}
	resource, _, _ := strings.Cut(strings.TrimPrefix(path, apiPathPrefix), "/")
	if resource == "" {
		return ""
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return permissionReadPrefix + resource
	}
	return permissionWritePrefix + resource
}

func (a *HTTPAuth) clientKey(c *gin.Context) string {
	if apiKey := strings.TrimSpace(c.GetHeader(headerName(a.cfg.HeaderAPIKey, apiKeyHeaderDefault))); apiKey != "" {
		return apiKey
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return clientKeyUnknown
}

func headerName(configured, fallback string) string {
	name := strings.TrimSpace(strings.ToLower(configured))
	if name == "" {
		return fallback
	}
	return name
}

// currentEmployer returns the employer bound by HTTPAuth.
func currentEmployer(c *gin.Context) (*models.Employer, bool) {
	v, ok := c.Get(employerContextKey)
	if !ok {
		return nil, false
	}
	e, ok := v.(*models.Employer)
	return e, ok && e != nil
}
