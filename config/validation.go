package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/statuscompliance/databinder/datasource"
)

// validate is shared across calls; validator.Validate is safe for concurrent
// use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the loaded configuration. Failures surface as
// invalid-configuration taxonomy errors so callers can treat setup defects
// uniformly with the executor's own config checks.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			first := invalid[0]
			return datasource.NewConfigError(
				fmt.Sprintf("failed %q validation", first.Tag()),
				fieldPath(first.Namespace()),
			)
		}
		return datasource.NewConfigError(err.Error(), "")
	}

	for id, ds := range cfg.Datasources {
		if err := validateDatasource(id, ds); err != nil {
			return err
		}
	}

	return nil
}

// validateDatasource applies the cross-field checks struct tags cannot
// express.
func validateDatasource(id string, ds Datasource) error {
	if ds.Auth != nil {
		switch ds.Auth.Type {
		case datasource.AuthBearer:
			if ds.Auth.Token == "" {
				return datasource.NewConfigError("bearer auth requires a token", id+".auth.token")
			}
		case datasource.AuthBasic:
			if ds.Auth.Username == "" {
				return datasource.NewConfigError("basic auth requires a username", id+".auth.username")
			}
		case datasource.AuthCustom:
			if ds.Auth.HeaderName == "" {
				return datasource.NewConfigError("custom auth requires a header name", id+".auth.header_name")
			}
		case datasource.AuthCookie:
			if len(ds.Auth.Cookies) == 0 {
				return datasource.NewConfigError("cookie auth requires at least one cookie", id+".auth.cookies")
			}
		case "":
			return datasource.NewConfigError("auth block requires a type", id+".auth.type")
		default:
			return datasource.NewConfigError(
				fmt.Sprintf("unknown auth type %q", ds.Auth.Type), id+".auth.type")
		}
	}

	if ds.RateLimit.RequestsPerSecond > 0 && ds.RateLimit.Burst == 0 {
		return datasource.NewConfigError("rate limit requires a burst when enabled", id+".rate_limit.burst")
	}

	return nil
}

// fieldPath trims the root struct name from a validator namespace, leaving
// a readable dotted path like "Datasources[github].BaseURL".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}
