package config

import (
	"io"

	"github.com/a8m/envsubst"
	"github.com/edaniels/golog"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Read reads a config from the given file. Environment variables in the file
// are expanded and JSON5 comments are allowed.
func Read(filePath string, logger golog.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", filePath)
	}
	cfg, err := fromBytes(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", filePath)
	}
	logger.Debugw("read config", "path", filePath)
	return cfg, nil
}

// FromReader reads a config from the given reader.
func FromReader(r io.Reader) (*Config, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return fromBytes(buf)
}

func fromBytes(buf []byte) (*Config, error) {
	cfg := Default()
	if err := json5.Unmarshal(buf, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate("perception"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromAttributes decodes a loosely typed attribute map, such as one embedded in
// a larger robot config, on top of the defaults.
func FromAttributes(attributes map[string]interface{}) (*Config, error) {
	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, err
	}
	if err := cfg.Validate("perception"); err != nil {
		return nil, err
	}
	return cfg, nil
}
