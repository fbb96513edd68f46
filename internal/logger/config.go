package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel  string                  `mapstructure:"defaultlevel" yaml:"defaultlevel"` // default log level for all modules
	Timezone      string                  `mapstructure:"timezone" yaml:"timezone"`         // "Local", "UTC", or IANA timezone name
	Console       *ConsoleOutput          `mapstructure:"console" yaml:"console"`           // console output configuration
	FileOutput    *FileOutput             `mapstructure:"fileoutput" yaml:"fileoutput"`     // file output configuration
	ModuleOutputs map[string]ModuleOutput `mapstructure:"modules" yaml:"modules"`           // per-module output configuration
	ModuleLevels  map[string]string       `mapstructure:"modulelevels" yaml:"modulelevels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output is text without timestamps; the environment adds them.
type ConsoleOutput struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level"`
}

// FileOutput represents file logging configuration. File output is JSON.
type FileOutput struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	Level   string `mapstructure:"level" yaml:"level"`
}

// ModuleOutput routes one module to a dedicated file
type ModuleOutput struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	FilePath    string `mapstructure:"filepath" yaml:"filepath"`
	Level       string `mapstructure:"level" yaml:"level"`
	ConsoleAlso bool   `mapstructure:"consolealso" yaml:"consolealso"`
}

// Default values for logging configuration.
const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/wallrot.log"
	DefaultAccessLogPath  = "logs/access.log"
	DefaultConsoleEnabled = true
)

// applyConfigDefaults fills nil sections so that an old or partial config
// still gets console output.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   cfg.DefaultLevel,
		}
	}
	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{Path: DefaultLogPath, Level: cfg.DefaultLevel}
	}
	if cfg.ModuleOutputs == nil {
		cfg.ModuleOutputs = make(map[string]ModuleOutput)
	}
}
