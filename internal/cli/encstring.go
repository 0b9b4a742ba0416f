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
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/encstring"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keychain"
	"github.com/jeremyhahn/go-vaultcrypto/pkg/keys"
)

// ErrKeyRequired is returned when an EncString command has no key.
var ErrKeyRequired = errors.New("key is required (--key or VAULTCRYPTO_KEY)")

func (a *app) keyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Symmetric key operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate a random 64 byte symmetric key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keys.GenerateSymmetricKey()
			if err != nil {
				return err
			}
			defer key.Zeroize()
			return a.printer(cmd).PrintValue("key", key.ToBase64())
		},
	})
	return cmd
}

func (a *app) encStringCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encstring",
		Short: "Encrypt, decrypt and inspect EncStrings",
	}
	cmd.PersistentFlags().String("key", "", "base64 symmetric key")
	_ = a.v.BindPFlag("key", cmd.PersistentFlags().Lookup("key"))

	cmd.AddCommand(
		&cobra.Command{
			Use:   "encrypt <plaintext>...",
			Short: "Encrypt each argument",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := a.keyedService()
				if err != nil {
					return err
				}
				defer svc.Close()

				items := make([]plaintext, len(args))
				for i, s := range args {
					items[i] = plaintext{value: s}
				}
				encs, err := keychain.EncryptList[*encstring.EncString](cmd.Context(), svc, items)
				if err != nil {
					return err
				}
				out := make([]string, len(encs))
				for i, e := range encs {
					out[i] = e.String()
				}
				return a.printer(cmd).PrintValues("encstrings", out)
			},
		},
		&cobra.Command{
			Use:   "decrypt <encstring>...",
			Short: "Decrypt each argument",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				items := make([]ciphertext, len(args))
				for i, s := range args {
					enc, err := encstring.Parse(s)
					if err != nil {
						return err
					}
					items[i] = ciphertext{enc: enc}
				}

				svc, err := a.keyedService()
				if err != nil {
					return err
				}
				defer svc.Close()

				out, err := keychain.DecryptList[string](cmd.Context(), svc, items)
				if err != nil {
					return err
				}
				return a.printer(cmd).PrintValues("plaintexts", out)
			},
		},
		&cobra.Command{
			Use:   "inspect <encstring>",
			Short: "Print the parts of an EncString",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				enc, err := encstring.Parse(args[0])
				if err != nil {
					return err
				}
				fields := []Field{
					{Name: "type", Label: "Type", Value: strconv.Itoa(int(enc.Type))},
					{Name: "name", Label: "Name", Value: enc.Type.String()},
					{Name: "iv", Label: "IV", Value: base64.StdEncoding.EncodeToString(enc.IV[:])},
					{Name: "data_len", Label: "Data length", Value: strconv.Itoa(len(enc.Data))},
				}
				if enc.Type != encstring.TypeAesCbc256B64 {
					fields = append(fields, Field{
						Name: "mac", Label: "MAC", Value: base64.StdEncoding.EncodeToString(enc.MAC[:]),
					})
				}
				return a.printer(cmd).PrintFields(fields)
			},
		},
	)
	return cmd
}

// keyedService returns a CryptoService holding the --key key as the
// user key.
func (a *app) keyedService() (*keychain.CryptoService, error) {
	b64 := a.v.GetString("key")
	if b64 == "" {
		return nil, ErrKeyRequired
	}
	key, err := keys.SymmetricKeyFromBase64(b64)
	if err != nil {
		return nil, err
	}
	svc, err := keychain.New(a.cfg.ServiceConfig(), keychain.WithLogger(a.logger))
	if err != nil {
		key.Zeroize()
		return nil, err
	}
	if err := svc.InsertSymmetricKey(keychain.UserKeyRef, key); err != nil {
		_ = svc.Close()
		return nil, err
	}
	a.logger.Debug("key loaded", "backend", svc.Backend())
	return svc, nil
}

type plaintext struct {
	value string
}

func (p plaintext) UsesKey() keychain.SymmetricKeyRef { return keychain.UserKeyRef }

func (p plaintext) Encrypt(ctx *keychain.Context, key keychain.SymmetricKeyRef) (*encstring.EncString, error) {
	return ctx.EncryptDataWithSymmetricKey(key, []byte(p.value))
}

type ciphertext struct {
	enc *encstring.EncString
}

func (c ciphertext) UsesKey() keychain.SymmetricKeyRef { return keychain.UserKeyRef }

func (c ciphertext) Decrypt(ctx *keychain.Context, key keychain.SymmetricKeyRef) (string, error) {
	return ctx.DecryptStringWithSymmetricKey(key, c.enc)
}
