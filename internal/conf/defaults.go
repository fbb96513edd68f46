// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.fileoutput.enabled", false)
	viper.SetDefault("logging.fileoutput.path", "logs/wallrot.log")
	viper.SetDefault("logging.fileoutput.level", "info")

	viper.SetDefault("catalog.imagedir", "wp")
	viper.SetDefault("catalog.localimagepath", "wp/")
	viper.SetDefault("catalog.datafile", "data/images.json")
	viper.SetDefault("catalog.mappingfile", "google-drive-mapping.json")
	viper.SetDefault("catalog.usegoogledrive", true)

	viper.SetDefault("remote.enabled", true)
	viper.SetDefault("remote.host", "drive.google.com")
	viper.SetDefault("remote.fallbacktolocal", true)
	viper.SetDefault("remote.thumbnailwidth", 2000)
	viper.SetDefault("remote.ratelimit", 2.0)
	viper.SetDefault("remote.burst", 2)

	viper.SetDefault("responsive.enabled", false)
	viper.SetDefault("responsive.screenwidth", 0)

	viper.SetDefault("imageprovider.loadtimeout", 5*time.Second)
	viper.SetDefault("imageprovider.maxbytes", 32<<20)
	viper.SetDefault("imageprovider.useragent", "wallrot/1.0")

	viper.SetDefault("lazyloading.enabled", true)
	viper.SetDefault("lazyloading.preloadthreshold", 2)
	viper.SetDefault("lazyloading.preloaddelay", 300*time.Millisecond)
	viper.SetDefault("lazyloading.queuesize", 5)
	viper.SetDefault("lazyloading.unloadthreshold", 10)
	viper.SetDefault("lazyloading.draindelay", 50*time.Millisecond)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", ":8080")
	viper.SetDefault("webserver.webroot", ".")
	viper.SetDefault("webserver.autotls", false)
	viper.SetDefault("webserver.host", "")

	viper.SetDefault("client.serverurl", "")
	viper.SetDefault("client.startindex", -1)

	viper.SetDefault("drive.credentialsfile", "credentials.json")
	viper.SetDefault("drive.folderid", "")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "wallrot")
	viper.SetDefault("mqtt.clientid", "wallrot")

	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
}
