package inspect

import (
	"bytes"
	"os"
	"sort"

	"reqsift/internal/core/errors"
	"reqsift/internal/shared/util"

	"github.com/BurntSushi/toml"
)

// DefaultContextPath is the per-project context file name.
const DefaultContextPath = ".reqsift.toml"

// Context carries the decisions that outlive a single run: confirmed
// mappings, ignored modules, and the extra modules and packages the user
// declared by hand.
type Context struct {
	Mapping        map[string]string `toml:"mapping"`
	IgnoredModules []string          `toml:"ignored_modules"`
	ExtraModules   []string          `toml:"extra_modules"`
	ExtraPackages  []string          `toml:"extra_packages"`
}

func NewContext() *Context {
	return &Context{Mapping: map[string]string{}}
}

// LoadContext reads the context file at path. A missing file is an empty
// context, not an error.
func LoadContext(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewContext(), nil
	}
	if err != nil {
		return nil, err
	}

	ctx := NewContext()
	if _, err := toml.Decode(string(data), ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "parse context file").
			WithContext(errors.CtxPath, path)
	}
	if ctx.Mapping == nil {
		ctx.Mapping = map[string]string{}
	}
	return ctx, nil
}

// SaveContext writes the context with sorted entries so repeated runs
// produce stable diffs.
func SaveContext(path string, ctx *Context) error {
	out := Context{
		Mapping:        ctx.Mapping,
		IgnoredModules: sortedCopy(ctx.IgnoredModules),
		ExtraModules:   sortedCopy(ctx.ExtraModules),
		ExtraPackages:  sortedCopy(ctx.ExtraPackages),
	}
	if out.Mapping == nil {
		out.Mapping = map[string]string{}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return err
	}
	return util.WriteFileWithDirs(path, buf.Bytes(), 0o644)
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
