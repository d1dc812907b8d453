package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/layers"
)

// profile names a backend: a scheme plus the options its service needs.
type profile struct {
	Scheme  string            `mapstructure:"scheme"`
	Options map[string]string `mapstructure:"options"`
}

type profileFile struct {
	Profiles map[string]profile `mapstructure:"profiles"`
}

// app carries the state shared by every subcommand: the loaded profile
// table and one operator per profile, constructed on first use.
type app struct {
	configPath string
	verbose    bool

	logger   zerolog.Logger
	profiles map[string]profile
	ops      map[string]*polystore.BlockingOperator
}

func newApp() *app {
	return &app{ops: make(map[string]*polystore.BlockingOperator)}
}

// loadProfiles reads the configuration file. A missing file is not an
// error; it leaves the profile table empty, and the first lookup tells
// the user which file to create.
func (a *app) loadProfiles() error {
	a.profiles = map[string]profile{}
	if _, err := os.Stat(a.configPath); err != nil {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(a.configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", a.configPath, err)
	}
	var f profileFile
	if err := v.Unmarshal(&f); err != nil {
		return fmt.Errorf("parsing %s: %w", a.configPath, err)
	}
	a.profiles = f.Profiles
	return nil
}

// target is one side of a command argument, split at the first colon.
type target struct {
	profile string
	path    string
}

func parseTarget(arg string) (target, error) {
	name, path, ok := strings.Cut(arg, ":")
	if !ok || name == "" {
		return target{}, fmt.Errorf("%q: argument must be PROFILE:PATH", arg)
	}
	return target{profile: name, path: path}, nil
}

// resolve turns a PROFILE:PATH argument into an operator and a path.
func (a *app) resolve(arg string) (*polystore.BlockingOperator, string, error) {
	t, err := parseTarget(arg)
	if err != nil {
		return nil, "", err
	}
	op, err := a.operatorFor(t.profile)
	if err != nil {
		return nil, "", err
	}
	return op, t.path, nil
}

// operatorFor returns the operator of a profile, constructing it on
// first use. A run shares one operator per profile, so commands that
// touch two paths of the same profile reuse one backend connection.
func (a *app) operatorFor(name string) (*polystore.BlockingOperator, error) {
	if op, ok := a.ops[name]; ok {
		return op, nil
	}
	p, ok := a.profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q is not defined in %s", name, a.configPath)
	}
	if p.Scheme == "" {
		return nil, fmt.Errorf("profile %q has no scheme", name)
	}
	op, err := polystore.NewOperator(p.Scheme, p.Options)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	b := op.Layer(layers.Logging(a.logger)).Blocking()
	a.ops[name] = b
	return b, nil
}

// shutdown closes every operator the run constructed.
func (a *app) shutdown() {
	for name, op := range a.ops {
		if err := op.Close(); err != nil {
			a.logger.Warn().Err(err).Str("profile", name).Msg("closing backend")
		}
	}
	a.ops = make(map[string]*polystore.BlockingOperator)
}
