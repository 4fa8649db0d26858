package manifest

import (
	"os"

	"reqsift/internal/core/errors"

	"github.com/BurntSushi/toml"
)

type pipfileDoc struct {
	Packages map[string]toml.Primitive `toml:"packages"`
}

// ParsePipfile returns the names declared in the [packages] section of a
// Pipfile. Versions and per-package tables are irrelevant here, only the
// keys count.
func ParsePipfile(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc pipfileDoc
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "parse Pipfile").
			WithContext(errors.CtxPath, path)
	}

	packages := make(map[string]bool, len(doc.Packages))
	for name := range doc.Packages {
		packages[name] = true
	}
	return packages, nil
}

// ApplyPipfile always fails. Rewriting a sectioned manifest risks mangling
// constraints and unrelated sections, so the operation is refused instead
// of guessed at.
func ApplyPipfile(path string) error {
	return errors.New(errors.CodeNotSupported, "applying changes to a Pipfile is not supported").
		WithContext(errors.CtxPath, path)
}
