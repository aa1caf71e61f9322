package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/model"
	"github.com/spf13/viper"
)

// Read the config file into viper on top of the defaults.
// A missing file is not an error; the defaults apply.
func LoadConfig(configFilePath string) error {
	utils.SetViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
			return nil
		}
		slog.Error("error during config read", "err", err)
		return fmt.Errorf("read config %s: %w", configFilePath, err)
	}
	return nil
}

// Decode the declarative mixer description under the mixer key.
func LoadMixer() (model.Mixer, error) {
	var mixer model.Mixer
	if err := viper.UnmarshalKey("mixer", &mixer); err != nil {
		return model.Mixer{}, fmt.Errorf("decode mixer: %w", err)
	}
	if err := mixer.Validate(); err != nil {
		return model.Mixer{}, err
	}
	return mixer, nil
}
