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
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-vaultcrypto/internal/password"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/auth"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
)

// ErrEmailRequired is returned when a command needs an account email and
// none was given.
var ErrEmailRequired = errors.New("email is required")

func (a *app) kdfCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kdf",
		Short: "Master password key derivation",
		Long: `Derive master password hashes and account keys.

The password is read from --password, VAULTCRYPTO_PASSWORD or the first
line of stdin. The KDF defaults to the kdf section of the configuration.`,
	}

	pf := cmd.PersistentFlags()
	pf.String("email", "", "account email")
	pf.String("password", "", "master password (prefer stdin)")
	pf.String("kdf", "", "kdf type (pbkdf2, argon2id)")
	pf.Uint32("iterations", 0, "kdf iterations")
	pf.Uint32("memory", 0, "argon2id memory in MiB")
	pf.Uint32("parallelism", 0, "argon2id parallelism")

	_ = a.v.BindPFlag("email", pf.Lookup("email"))
	_ = a.v.BindPFlag("password", pf.Lookup("password"))
	_ = a.v.BindPFlag("kdf.type", pf.Lookup("kdf"))
	_ = a.v.BindPFlag("kdf.iterations", pf.Lookup("iterations"))
	_ = a.v.BindPFlag("kdf.memory", pf.Lookup("memory"))
	_ = a.v.BindPFlag("kdf.parallelism", pf.Lookup("parallelism"))

	cmd.AddCommand(a.kdfShowCommand(), a.kdfHashCommand(), a.kdfRegisterCommand(), a.kdfUnlockCommand())
	return cmd
}

func (a *app) kdfShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective KDF settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := a.kdf()
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintFields([]Field{
				{Name: "type", Label: "Type", Value: k.Type.String()},
				{Name: "iterations", Label: "Iterations", Value: strconv.FormatUint(uint64(k.Iterations), 10)},
				{Name: "memory", Label: "Memory (MiB)", Value: strconv.FormatUint(uint64(k.Memory), 10)},
				{Name: "parallelism", Label: "Parallelism", Value: strconv.FormatUint(uint64(k.Parallelism), 10)},
			})
		},
	}
}

func (a *app) kdfHashCommand() *cobra.Command {
	var purpose string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a master password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePurpose(purpose)
			if err != nil {
				return err
			}
			email, pw, k, err := a.credentials(cmd)
			if err != nil {
				return err
			}
			defer pw.Clear()

			hash, err := auth.HashPassword(email, pw, k, p)
			if err != nil {
				return err
			}
			a.logger.Debug("password hashed", "purpose", p.String(), "kdf", k.Type.String())
			return a.printer(cmd).PrintValue("hash", hash)
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", "server", "hash purpose (server, local)")
	return cmd
}

func (a *app) kdfRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Generate the keys for a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, pw, k, err := a.credentials(cmd)
			if err != nil {
				return err
			}
			defer pw.Clear()

			resp, err := auth.MakeRegisterKeys(email, pw, k)
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintFields([]Field{
				{Name: "master_password_hash", Label: "Master password hash", Value: resp.MasterPasswordHash},
				{Name: "encrypted_user_key", Label: "Encrypted user key", Value: resp.EncryptedUserKey.String()},
				{Name: "public_key", Label: "Public key", Value: resp.Keys.Public},
				{Name: "encrypted_private_key", Label: "Encrypted private key", Value: resp.Keys.Private.String()},
			})
		},
	}
}

// kdf resolves the KDF from flags and environment over the config file.
func (a *app) kdf() (kdf.Kdf, error) {
	kc := a.cfg.Kdf
	if s := a.v.GetString("kdf.type"); s != "" {
		kc.Type = s
	}
	if n := a.v.GetUint32("kdf.iterations"); n != 0 {
		kc.Iterations = n
	}
	if n := a.v.GetUint32("kdf.memory"); n != 0 {
		kc.Memory = n
	}
	if n := a.v.GetUint32("kdf.parallelism"); n != 0 {
		kc.Parallelism = n
	}
	k, err := kc.Kdf()
	if err != nil {
		return kdf.Kdf{}, err
	}
	return k, k.Validate()
}

func (a *app) credentials(cmd *cobra.Command) (string, types.Password, kdf.Kdf, error) {
	email := a.v.GetString("email")
	if strings.TrimSpace(email) == "" {
		return "", nil, kdf.Kdf{}, ErrEmailRequired
	}
	k, err := a.kdf()
	if err != nil {
		return "", nil, kdf.Kdf{}, err
	}
	pw, err := a.secret(cmd, "password")
	if err != nil {
		return "", nil, kdf.Kdf{}, err
	}
	return email, pw, k, nil
}

// secret reads key from flags or environment, falling back to the first
// line of stdin.
func (a *app) secret(cmd *cobra.Command, key string) (types.Password, error) {
	value := a.v.GetString(key)
	if value == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		value = strings.TrimRight(line, "\r\n")
	}
	return password.FromString(value)
}

func parsePurpose(s string) (keys.HashPurpose, error) {
	switch strings.ToLower(s) {
	case "server", "server-authorization":
		return keys.ServerAuthorization, nil
	case "local", "local-authorization":
		return keys.LocalAuthorization, nil
	default:
		return 0, fmt.Errorf("unknown hash purpose: %s", s)
	}
}
