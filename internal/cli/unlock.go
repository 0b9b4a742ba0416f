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
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-vaultcrypto/internal/password"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/session"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// ErrUserKeyRequired is returned when unlock has no encrypted user key.
var ErrUserKeyRequired = errors.New("encrypted user key is required (--user-key)")

func (a *app) kdfUnlockCommand() *cobra.Command {
	var userKey, privateKey string
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock an account's user key with its master password",
		Long: `Try to unwrap the encrypted user key with a master password.

Each line of stdin is tried in turn unless --password is set. Attempts are
limited per account by the throttle section of the configuration; with
--wait an attempt blocks up to that long for the limit to allow it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userKey == "" {
				return ErrUserKeyRequired
			}
			enc, err := encstring.Parse(userKey)
			if err != nil {
				return fmt.Errorf("user key: %w", err)
			}
			var priv *encstring.EncString
			if privateKey != "" {
				if priv, err = encstring.Parse(privateKey); err != nil {
					return fmt.Errorf("private key: %w", err)
				}
			}

			email := a.v.GetString("email")
			if strings.TrimSpace(email) == "" {
				return ErrEmailRequired
			}
			k, err := a.kdf()
			if err != nil {
				return err
			}
			candidates, err := a.candidates(cmd)
			if err != nil {
				return err
			}

			svc, err := keychain.New(a.cfg.ServiceConfig(), keychain.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer svc.Close()
			throttle := a.newThrottle()
			defer throttle.Stop()

			c := session.New(svc, session.WithLogger(a.logger), session.WithThrottle(throttle))
			for i, pw := range candidates {
				err = c.InitializeUserCrypto(&session.InitUserCryptoRequest{
					Kdf:        k,
					Email:      email,
					PrivateKey: priv,
					Method:     session.Password{Password: pw, UserKey: enc},
				})
				pw.Clear()
				switch {
				case err == nil:
					clearAll(candidates[i+1:])
					return a.printer(cmd).PrintSuccess("vault unlocked")
				case !errors.Is(err, types.ErrWrongPassword):
					clearAll(candidates[i+1:])
					return err
				}
				a.logger.Debug("wrong password", "attempt", i+1)
			}
			return types.ErrWrongPassword
		},
	}
	cmd.Flags().StringVar(&userKey, "user-key", "", "user key encrypted with the master key")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "account private key encrypted with the user key")
	cmd.Flags().Duration("wait", 0, "how long an attempt may wait for the throttle")
	_ = a.v.BindPFlag("throttle.max_wait", cmd.Flags().Lookup("wait"))
	return cmd
}

// candidates returns --password, or every non-empty line of stdin.
func (a *app) candidates(cmd *cobra.Command) ([]types.Password, error) {
	if value := a.v.GetString("password"); value != "" {
		pw, err := password.FromString(value)
		if err != nil {
			return nil, err
		}
		return []types.Password{pw}, nil
	}

	var out []types.Password
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		pw, err := password.FromString(line)
		if err != nil {
			clearAll(out)
			return nil, err
		}
		out = append(out, pw)
	}
	if err := scanner.Err(); err != nil {
		clearAll(out)
		return nil, fmt.Errorf("reading passwords: %w", err)
	}
	if len(out) == 0 {
		return nil, password.ErrEmptyPassword
	}
	return out, nil
}

func clearAll(pws []types.Password) {
	for _, pw := range pws {
		pw.Clear()
	}
}
