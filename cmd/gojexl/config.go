package main

import (
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/sandrolain/gojexl"
)

// engineConfig is the TOML engine configuration:
//
//	cache_size = 512
//	max_depth = 200
//
//	[options]
//	strict = true
//	safe = false
//
//	[vars]
//	greeting = "hello"
type engineConfig struct {
	CacheSize int                    `toml:"cache_size"`
	MaxDepth  int                    `toml:"max_depth"`
	Options   map[string]bool        `toml:"options"`
	Vars      map[string]interface{} `toml:"vars"`
}

func loadConfig(path string) (*engineConfig, error) {
	cfg := &engineConfig{}
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// engineOptions turns the configuration into engine options. toggles, in
// "+flag -flag" form, are applied last.
func (c *engineConfig) engineOptions(toggles string) []gojexl.Option {
	var opts []gojexl.Option
	if c.CacheSize > 0 {
		opts = append(opts, gojexl.WithCacheSize(c.CacheSize))
	}
	if c.MaxDepth > 0 {
		opts = append(opts, gojexl.WithMaxDepth(c.MaxDepth))
	}
	var flags []string
	for _, name := range slices.Sorted(maps.Keys(c.Options)) {
		if c.Options[name] {
			flags = append(flags, "+"+name)
		} else {
			flags = append(flags, "-"+name)
		}
	}
	if toggles != "" {
		flags = append(flags, toggles)
	}
	if len(flags) > 0 {
		opts = append(opts, gojexl.WithOptions(flags...))
	}
	return opts
}

// loadContext reads the variables of a context file. The format follows the
// extension: .toml, or YAML for anything else, JSON included.
func loadContext(path string) (map[string]interface{}, error) {
	if path == "" {
		return map[string]interface{}{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vars := map[string]interface{}{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &vars)
	default:
		err = yaml.Unmarshal(data, &vars)
	}
	if err != nil {
		return nil, fmt.Errorf("context %s: %w", path, err)
	}
	normalize(vars)
	return vars, nil
}

// parseVars decodes name=value pairs. Values are YAML scalars or flow
// collections, so n=1 binds an integer and s=abc a string.
func parseVars(pairs map[string]string) (map[string]interface{}, error) {
	vars := make(map[string]interface{}, len(pairs))
	for name, raw := range pairs {
		var v interface{}
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("--var %s: %w", name, err)
		}
		vars[name] = normalize(v)
	}
	return vars, nil
}

// mergeVars layers the sources in order of precedence, lowest first.
func mergeVars(layers ...map[string]interface{}) map[string]interface{} {
	vars := map[string]interface{}{}
	for _, l := range layers {
		maps.Copy(vars, l)
	}
	return vars
}

// normalize converts the unsigned integers the YAML decoder produces to
// int64, the integer type of script literals.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
	case map[string]interface{}:
		for k, e := range x {
			x[k] = normalize(e)
		}
	case []interface{}:
		for i, e := range x {
			x[i] = normalize(e)
		}
	}
	return v
}
