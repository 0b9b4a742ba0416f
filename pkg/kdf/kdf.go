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

// Package kdf derives symmetric key material from low-entropy secrets.
//
// Two functions are supported, matching the values persisted in account
// settings:
//
//   - PBKDF2-HMAC-SHA256, tuned by iteration count
//   - Argon2id, tuned by iterations, memory (MiB) and parallelism; the salt is
//     pre-hashed with SHA-256 before use
//
// Both produce 32 bytes. Expand and Stretch turn that output into a 64-byte
// encryption and MAC key pair using HKDF-Expand.
package kdf

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/types"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// KeySize is the size of every derived key.
const KeySize = 32

// Type identifies a key derivation function.
type Type int

const (
	// PBKDF2 is PBKDF2-HMAC-SHA256.
	PBKDF2 Type = 0

	// Argon2id is the Argon2id memory-hard function.
	Argon2id Type = 1
)

// Defaults and minimums.
const (
	DefaultPBKDF2Iterations = 600_000
	MinPBKDF2Iterations     = 5_000

	DefaultArgon2Iterations  = 3
	DefaultArgon2Memory      = 64
	DefaultArgon2Parallelism = 4

	MinArgon2Iterations  = 2
	MinArgon2Memory      = 16
	MinArgon2Parallelism = 1
)

// ErrUnsupportedType is returned for an unknown KDF type.
var ErrUnsupportedType = errors.New("kdf: unsupported type")

// String returns the lowercase name of the KDF.
func (t Type) String() string {
	switch t {
	case PBKDF2:
		return "pbkdf2"
	case Argon2id:
		return "argon2id"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Kdf holds the parameters of a key derivation function. Zero-valued fields
// fall back to the defaults for Type. Memory and Parallelism are ignored for
// PBKDF2.
type Kdf struct {
	Type        Type   `yaml:"type" json:"type"`
	Iterations  uint32 `yaml:"iterations" json:"iterations"`
	Memory      uint32 `yaml:"memory,omitempty" json:"memory,omitempty"`
	Parallelism uint32 `yaml:"parallelism,omitempty" json:"parallelism,omitempty"`
}

// DefaultPBKDF2 returns PBKDF2 with the default iteration count.
func DefaultPBKDF2() Kdf {
	return Kdf{Type: PBKDF2, Iterations: DefaultPBKDF2Iterations}
}

// DefaultArgon2id returns Argon2id with the default parameters.
func DefaultArgon2id() Kdf {
	return Kdf{
		Type:        Argon2id,
		Iterations:  DefaultArgon2Iterations,
		Memory:      DefaultArgon2Memory,
		Parallelism: DefaultArgon2Parallelism,
	}
}

// WithDefaults returns a copy of k with zero fields replaced by defaults.
func (k Kdf) WithDefaults() Kdf {
	switch k.Type {
	case PBKDF2:
		if k.Iterations == 0 {
			k.Iterations = DefaultPBKDF2Iterations
		}
		k.Memory, k.Parallelism = 0, 0
	case Argon2id:
		if k.Iterations == 0 {
			k.Iterations = DefaultArgon2Iterations
		}
		if k.Memory == 0 {
			k.Memory = DefaultArgon2Memory
		}
		if k.Parallelism == 0 {
			k.Parallelism = DefaultArgon2Parallelism
		}
	}
	return k
}

// Validate checks k, after defaults are applied, against the minimums.
func (k Kdf) Validate() error {
	k = k.WithDefaults()
	switch k.Type {
	case PBKDF2:
		if k.Iterations < MinPBKDF2Iterations {
			return fmt.Errorf("%w: pbkdf2 iterations %d < %d",
				types.ErrInsufficientKdfParameters, k.Iterations, MinPBKDF2Iterations)
		}
	case Argon2id:
		if k.Iterations < MinArgon2Iterations {
			return fmt.Errorf("%w: argon2 iterations %d < %d",
				types.ErrInsufficientKdfParameters, k.Iterations, MinArgon2Iterations)
		}
		if k.Memory < MinArgon2Memory {
			return fmt.Errorf("%w: argon2 memory %d MiB < %d MiB",
				types.ErrInsufficientKdfParameters, k.Memory, MinArgon2Memory)
		}
		if k.Parallelism < MinArgon2Parallelism || k.Parallelism > math.MaxUint8 {
			return fmt.Errorf("%w: argon2 parallelism %d out of range",
				types.ErrInsufficientKdfParameters, k.Parallelism)
		}
		if uint64(k.Memory)*1024 > math.MaxUint32 {
			return fmt.Errorf("%w: argon2 memory %d MiB too large", types.ErrInsufficientKdfParameters, k.Memory)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedType, int(k.Type))
	}
	return nil
}

// DeriveKey runs the KDF described by k over secret and salt and returns a
// 32-byte key.
func DeriveKey(secret, salt []byte, k Kdf) ([]byte, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	k = k.WithDefaults()

	switch k.Type {
	case PBKDF2:
		return pbkdf2.Key(secret, salt, int(k.Iterations), KeySize, sha256.New), nil
	case Argon2id:
		saltHash := sha256.Sum256(salt)
		return argon2.IDKey(secret, saltHash[:], k.Iterations, k.Memory*1024, uint8(k.Parallelism), KeySize), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, int(k.Type))
}

// PBKDF2SHA256 is a thin helper over PBKDF2-HMAC-SHA256 for callers that need
// a fixed iteration count, such as password hashing.
func PBKDF2SHA256(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha256.New)
}

// ParseKdf builds a Kdf from loosely typed values, such as those read from
// flags or server responses. Empty or unparseable numbers fall back to the
// defaults for the type.
func ParseKdf(kdfType, iterations, memory, parallelism string) (Kdf, error) {
	var k Kdf
	switch strings.ToLower(strings.TrimSpace(kdfType)) {
	case "", "0", "pbkdf2", "pbkdf2-sha256":
		k.Type = PBKDF2
	case "1", "argon2", "argon2id":
		k.Type = Argon2id
	default:
		return Kdf{}, fmt.Errorf("%w: %q", ErrUnsupportedType, kdfType)
	}
	k.Iterations = parseUint(iterations)
	if k.Type == Argon2id {
		k.Memory = parseUint(memory)
		k.Parallelism = parseUint(parallelism)
	}
	return k.WithDefaults(), nil
}

func parseUint(s string) uint32 {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
