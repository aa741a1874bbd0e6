package config

// Default values for configuration options: layer 0 of the override chain.
const (
	defaultLogLevel        = "info"
	defaultScope           = "https://graph.microsoft.com/.default"
	defaultAuthority       = "https://login.microsoftonline.com"
	defaultAPIBaseURL      = "https://graph.microsoft.com/v1.0"
	defaultPageSize        = 200
	defaultBufferFraction  = 0.2
	defaultMaxBuffer       = "0"
	defaultRecoveryTimeout = "2m"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset fields keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: defaultLogLevel,
		Auth: AuthConfig{
			Scope:      defaultScope,
			Authority:  defaultAuthority,
			APIBaseURL: defaultAPIBaseURL,
			PageSize:   defaultPageSize,
		},
		Move: MoveConfig{
			BufferFraction:  defaultBufferFraction,
			MaxBuffer:       defaultMaxBuffer,
			RecoveryTimeout: defaultRecoveryTimeout,
			VerifyRestore:   true,
		},
		Sites: map[string]SiteConfig{},
	}
}
