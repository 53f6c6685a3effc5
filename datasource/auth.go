package datasource

import (
	"encoding/base64"
	"sort"
	"strings"
)

// AuthType enumerates the supported authentication schemes.
type AuthType string

const (
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthCookie AuthType = "cookie"
	AuthCustom AuthType = "custom"
)

// AuthConfig describes one authentication layer. A datasource carries one as
// its base credentials; a call may carry another as an override.
type AuthConfig struct {
	Type AuthType `koanf:"type" json:"type" validate:"omitempty,oneof=bearer basic cookie custom"`

	// Bearer.
	Token string `koanf:"token" json:"token,omitempty"`

	// Basic.
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`

	// Cookie.
	Cookies map[string]string `koanf:"cookies" json:"cookies,omitempty"`

	// Custom header.
	HeaderName  string `koanf:"header_name" json:"headerName,omitempty"`
	HeaderValue string `koanf:"header_value" json:"headerValue,omitempty"`
}

// mergeAuth resolves the effective credentials for one call. An override of a
// different type fully replaces the base; an override of the same type patches
// only the fields it supplies. Cookies are handled separately because they
// union across layers instead of replacing.
func mergeAuth(base, override *AuthConfig) *AuthConfig {
	switch {
	case base == nil && override == nil:
		return nil
	case base == nil:
		return override
	case override == nil:
		return base
	}

	if override.Type != "" && override.Type != base.Type {
		return override
	}

	merged := *base
	if override.Token != "" {
		merged.Token = override.Token
	}
	if override.Username != "" {
		merged.Username = override.Username
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.HeaderName != "" {
		merged.HeaderName = override.HeaderName
	}
	if override.HeaderValue != "" {
		merged.HeaderValue = override.HeaderValue
	}
	return &merged
}

// unionCookies merges cookie maps left to right, last writer per name wins.
func unionCookies(layers ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, layer := range layers {
		for name, value := range layer {
			merged[name] = value
		}
	}
	return merged
}

// ApplyAuth writes the headers implied by the resolved credentials into
// headers. Precedence: an override of a different type than base determines
// the headers alone; a same-type override merges field-by-field with override
// values winning; neither layer set is a no-op (no Authorization header).
// Cookies from base, override and explicit per-call cookies are unioned.
func ApplyAuth(headers map[string]string, base, override *AuthConfig, callCookies map[string]string) {
	effective := mergeAuth(base, override)

	cookies := callCookies
	if base != nil || override != nil {
		var baseCookies, overrideCookies map[string]string
		if base != nil {
			baseCookies = base.Cookies
		}
		if override != nil {
			overrideCookies = override.Cookies
		}
		cookies = unionCookies(baseCookies, overrideCookies, callCookies)
	}

	if effective != nil {
		switch effective.Type {
		case AuthBearer:
			if effective.Token != "" {
				headers["Authorization"] = "Bearer " + effective.Token
			}
		case AuthBasic:
			if effective.Username != "" {
				credentials := effective.Username + ":" + effective.Password
				headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
			}
		case AuthCustom:
			if effective.HeaderName != "" {
				headers[effective.HeaderName] = effective.HeaderValue
			}
		case AuthCookie:
			// Cookie material is emitted below with the unioned cookie map.
		}
	}

	if len(cookies) > 0 {
		headers["Cookie"] = formatCookies(cookies)
	}
}

// formatCookies renders a cookie map as a Cookie header value with
// deterministic name ordering.
func formatCookies(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+cookies[name])
	}
	return strings.Join(pairs, "; ")
}
