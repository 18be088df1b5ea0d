// Copyright 2026 The MCP Sandbox Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/guardiagent/mcp-sandbox/consent"
	"github.com/guardiagent/mcp-sandbox/lib/config"
	"github.com/guardiagent/mcp-sandbox/manifest"
	"github.com/guardiagent/mcp-sandbox/permission"
	"github.com/guardiagent/mcp-sandbox/sandbox"
)

// commonFlags are shared by every command that resolves manifests.
type commonFlags struct {
	configPath    string
	manifestFiles []string
}

func (f *commonFlags) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.StringArrayVar(&f.manifestFiles, "manifest-file", nil, "additional manifest file, repeatable; loaded last")
}

// launchFlags are shared by commands that build an invocation.
type launchFlags struct {
	commonFlags
	allow       []string
	env         []string
	instanceID  string
	consentMode string
}

func (f *launchFlags) addFlags(flagSet *pflag.FlagSet) {
	f.commonFlags.addFlags(flagSet)
	flagSet.StringArrayVar(&f.allow, "allow", nil, "requested permission: net:<host>:<port>, fs:<path>[:ro|rw[:<container-path>]] or env:<NAME>; repeatable")
	flagSet.StringArrayVar(&f.env, "env", nil, "static KEY=VALUE set inside the sandbox, repeatable")
	flagSet.StringVar(&f.instanceID, "instance-id", "", "instance identifier for the container name (default: random UUID)")
	flagSet.StringVar(&f.consentMode, "consent", "", "consent mode override: prompt, allow, deny, rules")
}

// loadConfig reads the file named by --config, else the one named by
// MCP_SANDBOX_CONFIG, else uses the defaults.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadManifests loads the built-in manifests, then the configured
// directory and files, then the files named on the command line.
func loadManifests(cfg *config.Config, extraFiles []string, logger *slog.Logger) (*manifest.Loader, error) {
	loader := manifest.NewLoader()
	loader.SetLogger(logger)

	if err := loader.LoadDefaults(); err != nil {
		return nil, err
	}
	if cfg.Manifests.Directory != "" {
		if err := loader.LoadDirectory(cfg.Manifests.Directory); err != nil {
			return nil, err
		}
	}
	for _, path := range append(append([]string(nil), cfg.Manifests.Files...), extraFiles...) {
		if err := loader.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return loader, nil
}

func runtimeConfig(cfg *config.Config) sandbox.RuntimeConfig {
	return sandbox.RuntimeConfig{
		Binary:          cfg.Runtime.Binary,
		ImageRepository: cfg.Runtime.ImageRepository,
		Version:         cfg.Runtime.Version,
	}
}

// supervisorConfig maps the configured grace period. A configured zero
// means kill immediately, which the supervisor spells as negative.
func supervisorConfig(cfg *config.Config, logger *slog.Logger) (sandbox.SupervisorConfig, error) {
	gracePeriod, err := cfg.GracePeriod()
	if err != nil {
		return sandbox.SupervisorConfig{}, err
	}
	if gracePeriod == 0 {
		gracePeriod = -1
	}
	return sandbox.SupervisorConfig{Logger: logger, GracePeriod: gracePeriod}, nil
}

// consentPolicy builds the policy for mode, falling back to the
// configured mode when mode is empty. The returned closer releases the
// terminal in prompt mode and is never nil.
func consentPolicy(cfg *config.Config, mode string, openTerminal func() (*consent.Terminal, error)) (consent.Policy, io.Closer, error) {
	if mode == "" {
		mode = cfg.Consent.Mode
	}

	allowed, err := cfg.AllowedCategories()
	if err != nil {
		return nil, nil, err
	}
	denied, err := cfg.DeniedCategories()
	if err != nil {
		return nil, nil, err
	}

	switch mode {
	case config.ConsentAllow:
		return consent.AllowAll(), noClose{}, nil
	case config.ConsentDeny:
		return consent.DenyAll(), noClose{}, nil
	case config.ConsentRules:
		fallback, err := consent.ParseDecision(cfg.Consent.Default)
		if err != nil {
			return nil, nil, err
		}
		return consent.Rules{Allow: allowed, Deny: denied, Default: fallback}, noClose{}, nil
	case config.ConsentPrompt:
		terminal, err := openTerminal()
		if err != nil {
			if errors.Is(err, consent.ErrNoTerminal) {
				return nil, nil, fmt.Errorf("%w; use --consent=rules or set consent.mode in the config file", err)
			}
			return nil, nil, err
		}
		rules := consent.Rules{Allow: allowed, Deny: denied, Default: consent.Abstain}
		return consent.First(rules, terminal), terminal, nil
	default:
		return nil, nil, fmt.Errorf("unknown consent mode %q (valid: %s, %s, %s, %s)",
			mode, config.ConsentPrompt, config.ConsentAllow, config.ConsentDeny, config.ConsentRules)
	}
}

type noClose struct{}

func (noClose) Close() error { return nil }

// parseStaticEnv parses KEY=VALUE pairs. Names are checked by the
// builder.
func parseStaticEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --env %q: must be KEY=VALUE", pair)
		}
		if _, duplicate := env[name]; duplicate {
			return nil, fmt.Errorf("--env %s given more than once", name)
		}
		env[name] = value
	}
	return env, nil
}

// launchSetup is everything a launching command resolves before it can
// prepare an invocation.
type launchSetup struct {
	manifest  manifest.Manifest
	requested []permission.Permission
	options   sandbox.BuildOptions
	launcher  *sandbox.Launcher
	closer    io.Closer
}

// setupLaunch resolves the manifest, parses the requested permissions
// and assembles a launcher. Callers must close the returned closer.
func setupLaunch(flags *launchFlags, key string, trailing []string, logger *slog.Logger) (*launchSetup, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	loader, err := loadManifests(cfg, flags.manifestFiles, logger)
	if err != nil {
		return nil, fmt.Errorf("loading manifests: %w", err)
	}
	m, err := loader.Resolve(key)
	if err != nil {
		return nil, err
	}
	requested, err := permission.ParseList(flags.allow)
	if err != nil {
		return nil, err
	}
	staticEnv, err := parseStaticEnv(flags.env)
	if err != nil {
		return nil, err
	}
	supervision, err := supervisorConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	policy, closer, err := consentPolicy(cfg, flags.consentMode, consent.OpenTerminal)
	if err != nil {
		return nil, err
	}

	launcher := sandbox.NewLauncher(
		sandbox.NewBuilder(runtimeConfig(cfg)),
		consent.NewGate(policy, logger),
		sandbox.NewSupervisor(supervision),
		logger,
	)
	return &launchSetup{
		manifest:  m,
		requested: requested,
		options: sandbox.BuildOptions{
			Args:       trailing,
			StaticEnv:  staticEnv,
			InstanceID: flags.instanceID,
		},
		launcher: launcher,
		closer:   closer,
	}, nil
}
