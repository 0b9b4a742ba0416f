// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-vaultcrypto/internal/config"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/auth"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/logging"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
)

// Options holds the global flags.
type Options struct {
	ConfigFile   string
	OutputFormat string
	Verbose      bool
}

// app is the state shared by every command of one invocation.
type app struct {
	opts   Options
	v      *viper.Viper
	cfg    *config.Config
	logger *logging.Logger
}

// NewRootCommand builds the vaultcrypto command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:   "vaultcrypto",
		Short: "Vault crypto toolkit",
		Long: `vaultcrypto exposes the password manager crypto core on the command line:
master password hashing, account key generation, EncString encryption and
decryption, key fingerprints and login-with-device requests.

Settings are read from --config, then VAULTCRYPTO_* environment variables,
then command flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.ConfigFile, "config", "", "config file (YAML)")
	pf.StringVarP(&a.opts.OutputFormat, "output", "o", string(OutputFormatText),
		"output format (text, json)")
	pf.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		a.versionCommand(),
		a.kdfCommand(),
		a.keyCommand(),
		a.encStringCommand(),
		a.fingerprintCommand(),
		a.authRequestCommand(),
	)
	return root
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil {
		format, _ := root.PersistentFlags().GetString("output")
		_ = NewPrinter(format, os.Stderr).PrintError(err)
	}
	return err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(strings.TrimSuffix(config.EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// setup loads the configuration and builds the logger before any
// command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch OutputFormat(a.opts.OutputFormat) {
	case OutputFormatText, OutputFormatJSON:
	default:
		return fmt.Errorf("unknown output format: %s", a.opts.OutputFormat)
	}

	var (
		cfg *config.Config
		err error
	)
	if a.opts.ConfigFile != "" {
		cfg, err = config.Load(a.opts.ConfigFile)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}

	if a.opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.Logging.Output = cmd.ErrOrStderr()
	if !cfg.Metrics.Enabled {
		metrics.Disable()
	}

	a.cfg = cfg
	a.logger = logging.New(cfg.Logging)
	a.logger.Debug("configuration loaded",
		"config", a.opts.ConfigFile,
		"backend", cfg.Keystore.Backend,
		"kdf", cfg.Kdf.Type)
	return nil
}

// newThrottle builds the unlock throttle from the throttle section. The
// caller stops it.
func (a *app) newThrottle() *auth.Throttle {
	cfg := a.cfg.Throttle
	cfg.MaxWait = a.maxWait()
	t := auth.NewThrottle(&cfg, a.logger)
	a.logger.Debug("unlock throttle",
		"enabled", t.Enabled(),
		"attempts_per_minute", cfg.AttemptsPerMinute,
		"max_wait", cfg.MaxWait)
	return t
}

// maxWait resolves --wait over the config file.
func (a *app) maxWait() time.Duration {
	if d := a.v.GetDuration("throttle.max_wait"); d > 0 {
		return d
	}
	return a.cfg.Throttle.MaxWait
}

func (a *app) printer(cmd *cobra.Command) *Printer {
	return NewPrinter(a.opts.OutputFormat, cmd.OutOrStdout())
}
