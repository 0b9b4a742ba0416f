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

// Package keychain holds the keys of an unlocked vault and performs
// encryption with them without handing the key material to callers.
//
// # Overview
//
// A CryptoService owns two global stores, one for symmetric and one for
// asymmetric keys, each addressed by a typed reference such as
// UserKeyRef or OrganizationKeyRef(id). Callers open a Context, ask it to
// encrypt or decrypt with a reference, and close it. ExportSymmetricKey is
// the only way key bytes leave the service.
//
// # Contexts
//
// A Context holds a read lock on the global stores for its lifetime and
// owns two local stores for intermediate keys, such as a cipher key that
// is only needed to decrypt one item. Local keys use local references and
// are wiped when the context is cleared or closed.
//
//	ctx := svc.Context()
//	defer ctx.Close()
//
//	enc, err := ctx.EncryptDataWithSymmetricKey(keychain.UserKeyRef, []byte("secret"))
//
// A MutableContext takes the write lock instead and is the only way to set,
// remove or retain global keys from a context, for example when loading
// organization keys.
//
// # Bulk encryption
//
// Encrypt, Decrypt, EncryptList and DecryptList work on any type that
// implements Encryptable or Decryptable. The list helpers split the input
// into chunks and process them concurrently, each chunk in its own
// Context.
package keychain
