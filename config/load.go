package config

import (
	"io/ioutil"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// tomlConfig represents the project configuration as it is encoded in TOML.
type tomlConfig struct {
	ShowLoc            bool `toml:"show_loc"`
	Debug              bool `toml:"debug"`
	UseJSBuiltinString bool `toml:"use_js_builtin_string"`
}

// LoadFile loads a project configuration file.  A missing file is not an
// error: the default configuration is returned.
func LoadFile(path string) (*BasicConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}

		return nil, errors.Wrapf(err, "unable to open config file at `%s`", path)
	}
	defer f.Close()

	buff, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config file at `%s`", path)
	}

	tomlCfg := &tomlConfig{}
	if err := toml.Unmarshal(buff, tomlCfg); err != nil {
		return nil, errors.Wrapf(err, "error parsing config file at `%s`", path)
	}

	return &BasicConfig{
		ShowLoc:            tomlCfg.ShowLoc,
		Debug:              tomlCfg.Debug,
		UseJSBuiltinString: tomlCfg.UseJSBuiltinString,
	}, nil
}
