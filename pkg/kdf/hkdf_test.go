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

package kdf

import (
	"testing"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	prk := []byte{
		23, 152, 120, 41, 214, 16, 156, 133, 71, 226, 178, 135, 208, 255, 66, 101, 189, 70,
		173, 30, 39, 215, 175, 236, 38, 180, 180, 62, 196, 4, 159, 70,
	}
	want := []byte{
		6, 114, 42, 38, 87, 231, 30, 109, 30, 255, 104, 129, 255, 94, 92, 108, 124, 145, 215,
		208, 17, 60, 135, 22, 70, 158, 40, 53, 45, 182, 8, 63, 65, 87, 239, 234, 185, 227,
		153, 122, 115, 205, 144, 56, 102, 149, 92, 139, 217, 102, 119, 57, 37, 57, 251, 178,
		18, 52, 94, 77, 132, 215, 239, 100,
	}

	got, err := Expand(prk, "info", 64)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExpandShortPRK(t *testing.T) {
	_, err := Expand(make([]byte, 31), "info", 32)
	assert.ErrorIs(t, err, types.ErrInvalidKeyLength)
}

func TestStretch(t *testing.T) {
	secret := []byte{
		31, 79, 104, 226, 150, 71, 177, 90, 194, 80, 172, 209, 17, 129, 132, 81, 138, 167,
		69, 167, 254, 149, 2, 27, 39, 197, 64, 42, 22, 195, 86, 75,
	}

	stretched, err := Stretch(secret)
	require.NoError(t, err)
	require.Len(t, stretched, 64)

	assert.Equal(t, []byte{
		111, 31, 178, 45, 238, 152, 37, 114, 143, 215, 124, 83, 135, 173, 195, 23, 142,
		134, 120, 249, 61, 132, 163, 182, 113, 197, 189, 204, 188, 21, 237, 96,
	}, stretched[:32])
	assert.Equal(t, []byte{
		221, 127, 206, 234, 101, 27, 202, 38, 86, 52, 34, 28, 78, 28, 185, 16, 48, 61, 127,
		166, 209, 247, 194, 87, 232, 26, 48, 85, 193, 249, 179, 155,
	}, stretched[32:])
}
