package cmr

import (
	"fmt"
	"net/url"
	"strings"
)

// Environment selects which CMR deployment to talk to.
type Environment string

// CMR environments.
const (
	EnvOPS Environment = "OPS"
	EnvSIT Environment = "SIT"
	EnvUAT Environment = "UAT"
)

// ParseEnvironment is case-insensitive. The empty string selects UAT.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "UAT":
		return EnvUAT, nil
	case "SIT":
		return EnvSIT, nil
	case "OPS", "PROD":
		return EnvOPS, nil
	default:
		return "", fmt.Errorf("unknown CMR environment %q (want OPS, SIT or UAT)", s)
	}
}

// Host returns the public CMR host for the environment.
func (e Environment) Host() string {
	switch e {
	case EnvOPS:
		return "cmr.earthdata.nasa.gov"
	case EnvSIT:
		return "cmr.sit.earthdata.nasa.gov"
	default:
		return "cmr.uat.earthdata.nasa.gov"
	}
}

// Service is a CMR API family.
type Service string

// CMR services.
const (
	ServiceToken    Service = "token"
	ServiceSearch   Service = "search"
	ServiceValidate Service = "validate"
	ServiceIngest   Service = "ingest"
)

// Resolver maps a service, environment and provider onto a base URL.
type Resolver struct {
	env  Environment
	base string
}

// NewResolver creates a Resolver. A non-empty host overrides the environment
// and may be a bare host name (https is assumed) or a full base URL.
func NewResolver(env Environment, host string) (*Resolver, error) {
	if env == "" {
		env = EnvUAT
	}

	base := "https://" + env.Host()
	if host = strings.TrimSpace(host); host != "" {
		if !strings.Contains(host, "://") {
			host = "https://" + host
		}
		u, err := url.Parse(host)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid CMR host %q", host)
		}
		base = strings.TrimRight(u.String(), "/")
	}

	return &Resolver{env: env, base: base}, nil
}

// Environment returns the configured environment.
func (r *Resolver) Environment() Environment {
	return r.env
}

// BaseURL returns the scheme and host every service URL is built on.
func (r *Resolver) BaseURL() string {
	return r.base
}

// URL returns the base URL of a service, without a trailing slash. Validate
// and ingest URLs are provider-scoped and need a provider.
func (r *Resolver) URL(svc Service, provider string) (string, error) {
	switch svc {
	case ServiceToken:
		return r.base + "/legacy-services/rest/tokens", nil
	case ServiceSearch:
		return r.base + "/search", nil
	case ServiceValidate, ServiceIngest:
		if provider == "" {
			return "", fmt.Errorf("%s URL: %w", svc, ErrMissingProvider)
		}
		u := r.base + "/ingest/providers/" + url.PathEscape(provider)
		if svc == ServiceValidate {
			u += "/validate"
		}
		return u, nil
	default:
		return "", fmt.Errorf("unknown CMR service %q", svc)
	}
}
