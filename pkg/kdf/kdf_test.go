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

func TestDeriveKeyPBKDF2(t *testing.T) {
	key, err := DeriveKey([]byte("67t9b5g67$%Dh89n"), []byte("test_key"), Kdf{Type: PBKDF2, Iterations: 10000})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		31, 79, 104, 226, 150, 71, 177, 90, 194, 80, 172, 209, 17, 129, 132, 81, 138, 167,
		69, 167, 254, 149, 2, 27, 39, 197, 64, 42, 22, 195, 86, 75,
	}, key)
}

func TestDeriveKeyArgon2id(t *testing.T) {
	key, err := DeriveKey([]byte("67t9b5g67$%Dh89n"), []byte("test_key"),
		Kdf{Type: Argon2id, Iterations: 4, Memory: 32, Parallelism: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{
		207, 240, 225, 177, 162, 19, 163, 76, 98, 106, 179, 175, 224, 9, 17, 240, 20, 147,
		237, 47, 246, 150, 141, 184, 62, 225, 131, 242, 51, 53, 225, 242,
	}, key)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	k := Kdf{Type: PBKDF2, Iterations: 5000}
	a, err := DeriveKey([]byte("secret"), []byte("salt"), k)
	require.NoError(t, err)
	b, err := DeriveKey([]byte("secret"), []byte("salt"), k)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := DeriveKey([]byte("secret"), []byte("salt"), Kdf{Type: PBKDF2, Iterations: 5001})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := DeriveKey([]byte("secret"), []byte("salt2"), k)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		kdf     Kdf
		wantErr error
	}{
		{"pbkdf2 default", DefaultPBKDF2(), nil},
		{"pbkdf2 zero falls back", Kdf{Type: PBKDF2}, nil},
		{"pbkdf2 minimum", Kdf{Type: PBKDF2, Iterations: 5000}, nil},
		{"pbkdf2 too low", Kdf{Type: PBKDF2, Iterations: 4999}, types.ErrInsufficientKdfParameters},
		{"argon2 default", DefaultArgon2id(), nil},
		{"argon2 zero falls back", Kdf{Type: Argon2id}, nil},
		{"argon2 minimum", Kdf{Type: Argon2id, Iterations: 2, Memory: 16, Parallelism: 1}, nil},
		{"argon2 iterations too low", Kdf{Type: Argon2id, Iterations: 1, Memory: 16, Parallelism: 1}, types.ErrInsufficientKdfParameters},
		{"argon2 memory too low", Kdf{Type: Argon2id, Iterations: 2, Memory: 15, Parallelism: 1}, types.ErrInsufficientKdfParameters},
		{"argon2 parallelism too high", Kdf{Type: Argon2id, Iterations: 2, Memory: 16, Parallelism: 256}, types.ErrInsufficientKdfParameters},
		{"unknown type", Kdf{Type: Type(9)}, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kdf.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithDefaults(t *testing.T) {
	assert.Equal(t, DefaultPBKDF2(), Kdf{Type: PBKDF2}.WithDefaults())
	assert.Equal(t, DefaultArgon2id(), Kdf{Type: Argon2id}.WithDefaults())
	assert.Equal(t, Kdf{Type: Argon2id, Iterations: 5, Memory: 64, Parallelism: 4},
		Kdf{Type: Argon2id, Iterations: 5}.WithDefaults())
}

func TestParseKdf(t *testing.T) {
	tests := []struct {
		name                        string
		typ, iter, memory, parallel string
		want                        Kdf
		wantErr                     bool
	}{
		{name: "pbkdf2 explicit", typ: "pbkdf2", iter: "100000", want: Kdf{Type: PBKDF2, Iterations: 100000}},
		{name: "numeric type", typ: "0", iter: "", want: DefaultPBKDF2()},
		{name: "unparseable iterations", typ: "pbkdf2", iter: "abc", want: DefaultPBKDF2()},
		{name: "argon2id", typ: "argon2id", iter: "4", memory: "32", parallel: "2",
			want: Kdf{Type: Argon2id, Iterations: 4, Memory: 32, Parallelism: 2}},
		{name: "argon2id partial", typ: "1", iter: "x", memory: "", parallel: "-1", want: DefaultArgon2id()},
		{name: "unknown", typ: "scrypt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKdf(tt.typ, tt.iter, tt.memory, tt.parallel)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "pbkdf2", PBKDF2.String())
	assert.Equal(t, "argon2id", Argon2id.String())
	assert.Equal(t, "unknown(7)", Type(7).String())
}
