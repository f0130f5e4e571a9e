package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Read reads a config from the given file, expanding environment variables such as ${HOME}
// in its contents first.
func Read(filePath string, logger golog.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger golog.Logger) (*Config, error) {
	var am AttributeMap
	if err := json.NewDecoder(r).Decode(&am); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}
	conf, err := FromAttributes(am)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(originalPath); err != nil {
		return nil, err
	}
	logger.Debugw("config read", "path", originalPath, "min_size", conf.MinSize, "palette_size", len(conf.Palette))
	return conf, nil
}
