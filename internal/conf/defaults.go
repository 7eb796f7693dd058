// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default sizing command, low I/O priority recursive KB size estimate.
const DefaultCommand = "ionice -c 3 du -ks"

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "dusnap")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "dusnap.log")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("snapshot.homepath", "")
	viper.SetDefault("snapshot.homelabel", "HOME")
	viper.SetDefault("snapshot.jobsdir", "jobs")
	viper.SetDefault("snapshot.command", DefaultCommand)
	viper.SetDefault("snapshot.timeout", 20*time.Second)
	viper.SetDefault("snapshot.quietperiod", 15*time.Minute)
	viper.SetDefault("snapshot.directorypacing", time.Second)
	viper.SetDefault("snapshot.templabel", "tmpdir")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.host", "0.0.0.0")
	viper.SetDefault("webserver.port", 8090)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "dusnap.db")
}
