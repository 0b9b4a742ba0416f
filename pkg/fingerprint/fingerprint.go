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

// Package fingerprint derives a human readable phrase from a public key so
// two parties can compare keys out of band.
//
// The phrase is five words from the EFF long word list. The words are
// picked by reading HKDF-Expand(publicKey, material) as a big-endian
// integer and repeatedly taking it modulo the list size.
package fingerprint

import (
	"errors"
	"math"
	"math/big"
	"strings"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/kdf"
	"github.com/sethvargo/go-diceware/diceware"
)

const (
	// WordListSize is the number of words in the EFF long list.
	WordListSize = 7776

	hashSize       = 32
	minimumEntropy = 64
	separator      = "-"
)

// ErrEntropyTooSmall is returned when the hash cannot supply enough entropy
// for the phrase.
var ErrEntropyTooSmall = errors.New("fingerprint: entropy is too small")

// Generate returns the fingerprint phrase for publicKey, usually an SPKI
// DER public key, bound to material, usually a user id or email.
func Generate(material string, publicKey []byte) (string, error) {
	hash, err := kdf.Expand(publicKey, material, hashSize)
	if err != nil {
		return "", err
	}
	return hashWords(hash)
}

func hashWords(hash []byte) (string, error) {
	perWord := math.Log2(WordListSize)
	numWords := int(math.Ceil(minimumEntropy / perWord))
	if float64(numWords)*perWord > float64(len(hash)*4) {
		return "", ErrEntropyTooSmall
	}

	list := diceware.WordListEffLarge()
	n := new(big.Int).SetBytes(hash)
	size := big.NewInt(WordListSize)
	rem := new(big.Int)

	words := make([]string, 0, numWords)
	for i := 0; i < numWords; i++ {
		n.DivMod(n, size, rem)
		words = append(words, list.WordAt(diceRoll(int(rem.Int64()))))
	}
	return strings.Join(words, separator), nil
}

// diceRoll converts a zero based list index into the five digit dice roll
// the word list is keyed by, e.g. 0 -> 11111 and 7775 -> 66666.
func diceRoll(index int) int {
	roll, place := 0, 1
	for i := 0; i < 5; i++ {
		roll += (index%6 + 1) * place
		index /= 6
		place *= 10
	}
	return roll
}
