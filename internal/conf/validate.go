// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateCatalogSettings,
		validateRemoteSettings,
		validateImageProviderSettings,
		validateLazyLoadingSettings,
		validateClientSettings,
		validateMQTTSettings,
		validateTelemetrySettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateCatalogSettings(s *Settings) error {
	if s.Catalog.ImageDir == "" {
		return fmt.Errorf("catalog.imagedir must not be empty")
	}
	if s.Catalog.DataFile == "" {
		return fmt.Errorf("catalog.datafile must not be empty")
	}
	return nil
}

func validateRemoteSettings(s *Settings) error {
	if !s.Remote.Enabled {
		return nil
	}
	if s.Remote.Host == "" || strings.ContainsAny(s.Remote.Host, "/?#") {
		return fmt.Errorf("remote.host must be a bare host name, got %q", s.Remote.Host)
	}
	if s.Remote.ThumbnailWidth <= 0 {
		return fmt.Errorf("remote.thumbnailwidth must be positive, got %d", s.Remote.ThumbnailWidth)
	}
	if s.Remote.RateLimit < 0 {
		return fmt.Errorf("remote.ratelimit must not be negative")
	}
	if s.Remote.RateLimit > 0 && s.Remote.Burst < 1 {
		return fmt.Errorf("remote.burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func validateImageProviderSettings(s *Settings) error {
	if s.ImageProvider.LoadTimeout <= 0 {
		return fmt.Errorf("imageprovider.loadtimeout must be positive")
	}
	if s.ImageProvider.MaxBytes <= 0 {
		return fmt.Errorf("imageprovider.maxbytes must be positive")
	}
	return nil
}

func validateLazyLoadingSettings(s *Settings) error {
	ll := s.LazyLoading
	switch {
	case ll.PreloadThreshold < 0:
		return fmt.Errorf("lazyloading.preloadthreshold must not be negative")
	case ll.QueueSize < 1:
		return fmt.Errorf("lazyloading.queuesize must be at least 1")
	case ll.UnloadThreshold < 0:
		return fmt.Errorf("lazyloading.unloadthreshold must not be negative")
	case ll.PreloadDelay < 0 || ll.DrainDelay < 0:
		return fmt.Errorf("lazyloading delays must not be negative")
	}
	return nil
}

func validateClientSettings(s *Settings) error {
	if s.Client.ServerURL == "" {
		return nil
	}
	u, err := url.Parse(s.Client.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("client.serverurl must be an http(s) URL, got %q", s.Client.ServerURL)
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}
	if s.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when MQTT is enabled")
	}
	if s.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic is required when MQTT is enabled")
	}
	return nil
}

func validateTelemetrySettings(s *Settings) error {
	if s.Telemetry.Enabled && s.Telemetry.DSN == "" {
		return fmt.Errorf("telemetry.dsn is required when telemetry is enabled")
	}
	return nil
}
