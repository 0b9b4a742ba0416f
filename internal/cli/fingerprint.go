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
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/auth"
)

func (a *app) fingerprintCommand() *cobra.Command {
	var email, publicKey string
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the fingerprint phrase of a public key",
		Long: `Print the five word fingerprint phrase for a base64 SPKI public key,
bound to the account email.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return ErrEmailRequired
			}
			fp, err := auth.GetFingerprint(email, publicKey)
			if err != nil {
				return err
			}
			return a.printer(cmd).PrintValue("fingerprint", fp)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "base64 SPKI public key")
	_ = cmd.MarkFlagRequired("public-key")
	return cmd
}

func (a *app) authRequestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth-request",
		Short: "Login with device requests",
	}

	var email string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create an auth request key pair and access code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return ErrEmailRequired
			}
			req, err := auth.NewAuthRequest(email)
			if err != nil {
				return err
			}
			a.logger.Debug("auth request created", "email", email)
			return a.printer(cmd).PrintFields([]Field{
				{Name: "private_key", Label: "Private key", Value: req.PrivateKey},
				{Name: "public_key", Label: "Public key", Value: req.PublicKey},
				{Name: "fingerprint", Label: "Fingerprint", Value: req.Fingerprint},
				{Name: "access_code", Label: "Access code", Value: req.AccessCode},
			})
		},
	}
	newCmd.Flags().StringVar(&email, "email", "", "account email")

	cmd.AddCommand(newCmd)
	return cmd
}
