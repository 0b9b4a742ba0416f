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
	"runtime"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via -ldflags)
var (
	Version   = "dev"     // -X github.com/jeremyhahn/go-vaultcrypto/internal/cli.Version=x.y.z
	GitCommit = "unknown" // -X github.com/jeremyhahn/go-vaultcrypto/internal/cli.GitCommit=abc123
	BuildDate = "unknown" // -X github.com/jeremyhahn/go-vaultcrypto/internal/cli.BuildDate=2025-01-15
)

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printer(cmd).PrintFields([]Field{
				{Name: "version", Label: "vaultcrypto version", Value: Version},
				{Name: "commit", Label: "Git commit", Value: GitCommit},
				{Name: "build_date", Label: "Build date", Value: BuildDate},
				{Name: "go_version", Label: "Go version", Value: runtime.Version()},
				{Name: "platform", Label: "OS/Arch", Value: runtime.GOOS + "/" + runtime.GOARCH},
			})
		},
	}
}
