package utils

import (
	"time"

	"github.com/spf13/viper"
)

// Set the viper defaults for the player.
// For use in cmd/player, as well as tests that go through the config layer.
func SetViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")

	viper.SetDefault("device", "oto")
	viper.SetDefault("samplerate", 44100)
	viper.SetDefault("channels", 2)
	viper.SetDefault("sampleformat", "f32")
	viper.SetDefault("buffersize", 1024)
	viper.SetDefault("underruntimeout", 50*time.Millisecond)

	viper.SetDefault("resamplechunksize", 2048)
	viper.SetDefault("resamplesubchunks", 2)

	viper.SetDefault("outputfile", "mix.wav")
	viper.SetDefault("outputsamplerate", 0)
	viper.SetDefault("renderms", 0)
}
