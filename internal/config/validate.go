package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validation range constants.
const (
	minPageSize = 1
	maxPageSize = 999
)

var validLogLevels = []any{"debug", "info", "warn", "error"}

// Validate checks all configuration values and returns all errors found.
// Every section is checked so users see a complete report in one pass.
// Credential presence is not checked here because credentials usually
// arrive through the environment; see ValidateCredentials.
func Validate(cfg *Config) error {
	var errs []error

	if err := validation.Validate(cfg.LogLevel, validation.Required, validation.In(validLogLevels...)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	errs = append(errs, section("auth", cfg.Auth.Validate()))
	errs = append(errs, section("move", cfg.Move.Validate()))

	for _, name := range cfg.SiteNames() {
		sc := cfg.Sites[name]
		errs = append(errs, section("sites."+name, sc.Validate()))
	}

	return errors.Join(errs...)
}

// ValidateCredentials checks that the client-credentials triple is present
// after all overrides have been applied.
func ValidateCredentials(a *AuthConfig) error {
	return section("auth", validation.ValidateStruct(a,
		validation.Field(&a.TenantID, validation.Required),
		validation.Field(&a.ClientID, validation.Required),
		validation.Field(&a.ClientSecret, validation.Required),
	))
}

// Validate checks the auth section's endpoint settings.
func (a *AuthConfig) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Scope, validation.Required),
		validation.Field(&a.Authority, validation.Required, validation.By(absoluteURL)),
		validation.Field(&a.APIBaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&a.PageSize, validation.Min(minPageSize), validation.Max(maxPageSize)),
	)
}

// Validate checks the move section.
func (m *MoveConfig) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.BufferFraction,
			validation.Required, validation.Min(0.0).Exclusive(), validation.Max(1.0)),
		validation.Field(&m.MaxBuffer, validation.By(sizeString)),
		validation.Field(&m.RecoveryTimeout, validation.Required, validation.By(positiveDuration)),
	)
}

// Validate checks one [sites.NAME] table.
func (s *SiteConfig) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.SiteID, validation.Required),
		validation.Field(&s.DriveID, validation.Required),
		validation.Field(&s.SiteURL, validation.By(absoluteURL)),
	)
}

// RecoveryTimeoutDuration returns the parsed move.recovery_timeout.
func (m *MoveConfig) RecoveryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(m.RecoveryTimeout)
	if err != nil {
		return 0
	}

	return d
}

func section(name string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("[%s] %w", name, err)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}

	return nil
}

func sizeString(value any) error {
	s, _ := value.(string)
	if _, err := ParseSize(s); err != nil {
		return errors.New("must be a size such as \"512MiB\" or \"0\"")
	}

	return nil
}

func positiveDuration(value any) error {
	s, _ := value.(string)

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return errors.New("must be a positive duration such as \"2m\"")
	}

	return nil
}
