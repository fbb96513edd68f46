// conf/config.go
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wallrot/wallrot/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// AppName is used for config directories and the environment prefix
const AppName = "wallrot"

// CatalogSettings describes where the image collection and its metadata live
type CatalogSettings struct {
	ImageDir       string `yaml:"imagedir"`       // directory holding the wallpaper files
	LocalImagePath string `yaml:"localimagepath"` // path prefix written into catalog records, e.g. "wp/"
	DataFile       string `yaml:"datafile"`       // generated catalog, e.g. data/images.json
	MappingFile    string `yaml:"mappingfile"`    // filename to Drive file id mapping
	UseGoogleDrive bool   `yaml:"usegoogledrive"` // merge Drive ids into generated records
}

// RemoteSettings controls the remote (Drive) candidate strategies
type RemoteSettings struct {
	Enabled         bool    `yaml:"enabled"`         // false disables remote candidates entirely
	Host            string  `yaml:"host"`            // remote host, drive.google.com
	FallbackToLocal bool    `yaml:"fallbacktolocal"` // append the local candidate after remote ones
	ThumbnailWidth  int     `yaml:"thumbnailwidth"`  // fixed thumbnail width when responsive sizing is off
	RateLimit       float64 `yaml:"ratelimit"`       // background requests per second, 0 disables
	Burst           int     `yaml:"burst"`           // background request burst
}

// ResponsiveSettings picks the thumbnail width from the screen width
type ResponsiveSettings struct {
	Enabled     bool `yaml:"enabled"`
	ScreenWidth int  `yaml:"screenwidth"` // 0 means unknown, use the largest size
}

// ImageProviderSettings tune individual candidate loads
type ImageProviderSettings struct {
	LoadTimeout time.Duration `yaml:"loadtimeout"` // per-candidate timeout
	MaxBytes    int64         `yaml:"maxbytes"`    // maximum accepted image size
	UserAgent   string        `yaml:"useragent"`
}

// LazyLoadingSettings configure the preload queue
type LazyLoadingSettings struct {
	Enabled          bool          `yaml:"enabled"`
	PreloadThreshold int           `yaml:"preloadthreshold"` // neighbours preloaded on each side
	PreloadDelay     time.Duration `yaml:"preloaddelay"`     // delay before neighbours are queued
	QueueSize        int           `yaml:"queuesize"`        // loaded images kept before eviction starts
	UnloadThreshold  int           `yaml:"unloadthreshold"`  // minimum circular distance for eviction
	DrainDelay       time.Duration `yaml:"draindelay"`       // pause between two queued loads
}

// WebServerSettings configure the HTTP server
type WebServerSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`  // listen address, e.g. :8080
	WebRoot string `yaml:"webroot"` // static files and index.html
	AutoTLS bool   `yaml:"autotls"` // obtain certificates with ACME
	Host    string `yaml:"host"`    // host name for AutoTLS
}

// ClientSettings configure the rotate command
type ClientSettings struct {
	ServerURL  string `yaml:"serverurl"`  // catalog API base URL, empty uses the local catalog file
	StartIndex int    `yaml:"startindex"` // -1 starts at a random image
}

// DriveSettings configure the upload command
type DriveSettings struct {
	CredentialsFile string `yaml:"credentialsfile"` // service account or authorized user JSON
	FolderID        string `yaml:"folderid"`        // target folder, created when missing
}

// MQTTSettings configure optional event publishing
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"clientid"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MetricsSettings toggle the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool `yaml:"enabled"`
}

// TelemetrySettings configure error reporting
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// Settings contains all configuration options for the application
type Settings struct {
	Debug bool `yaml:"debug"`

	Logging       logger.LoggingConfig  `yaml:"logging"`
	Catalog       CatalogSettings       `yaml:"catalog"`
	Remote        RemoteSettings        `yaml:"remote"`
	Responsive    ResponsiveSettings    `yaml:"responsive"`
	ImageProvider ImageProviderSettings `yaml:"imageprovider"`
	LazyLoading   LazyLoadingSettings   `yaml:"lazyloading"`
	WebServer     WebServerSettings     `yaml:"webserver"`
	Client        ClientSettings        `yaml:"client"`
	Drive         DriveSettings         `yaml:"drive"`
	MQTT          MQTTSettings          `yaml:"mqtt"`
	Metrics       MetricsSettings       `yaml:"metrics"`
	Telemetry     TelemetrySettings     `yaml:"telemetry"`

	ConfigFile string `yaml:"-"` // path of the file the settings were read from, runtime value
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
// An empty configFile searches the default config paths and creates a
// default config there when none exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = viper.ConfigFileUsed()

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config into dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath atomically.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		// cross-device rename
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}
