package logger

import "strings"

// DefaultMaskValue replaces sensitive values in log output.
const DefaultMaskValue = "***"

// FilterConfig defines which field names are considered sensitive.
type FilterConfig struct {
	// SensitiveFields contains lowercase substrings; any field whose name
	// contains one of them is masked.
	SensitiveFields []string
	// MaskValue replaces sensitive data (default: "***").
	MaskValue string
}

// DefaultFilterConfig covers the credential material a fetch layer handles:
// authorization headers, bearer tokens, basic-auth passwords and cookies.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"authorization",
			"cookie",
			"token", "access_token", "refresh_token",
			"password", "passwd", "pwd",
			"secret", "client_secret",
			"api_key", "apikey",
			"credential", "credentials",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive fields before they reach log output.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a filter with the given configuration,
// falling back to DefaultFilterConfig when config is nil.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString returns the mask value when key names a sensitive field.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	return value
}

// FilterFields returns a copy of fields with sensitive values masked.
// Non-sensitive entries are passed through unchanged.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		if f.isSensitiveField(key) {
			filtered[key] = f.config.MaskValue
			continue
		}
		filtered[key] = value
	}
	return filtered
}

func (f *SensitiveDataFilter) isSensitiveField(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range f.config.SensitiveFields {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
