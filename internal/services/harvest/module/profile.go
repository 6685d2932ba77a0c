package module

import (
	"bytes"
	"errors"
	"io/fs"
	"os"

	perr "tulflow/internal/platform/errors"
	"tulflow/internal/platform/net/http/bind"
	"tulflow/internal/services/harvest/domain"

	"gopkg.in/yaml.v3"
)

// LoadProfile reads a YAML pipeline profile and validates it
func LoadProfile(path string) (domain.Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Pipeline{}, perr.Wrapf(err, perr.ErrorCodeNotFound, "profile %s", path)
		}
		return domain.Pipeline{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read profile %s", path)
	}
	return ParseProfile(b)
}

// ParseProfile decodes one profile document, rejecting unknown keys
func ParseProfile(b []byte) (domain.Pipeline, error) {
	var p domain.Pipeline
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return domain.Pipeline{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode profile")
	}
	if err := bind.Validate(p); err != nil {
		return domain.Pipeline{}, err
	}
	return p, nil
}
