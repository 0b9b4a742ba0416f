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

package keychain

import (
	"context"
	"time"

	"github.com/jeremyhahn/go-vaultcrypto/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Encryptable is a plaintext item that encrypts itself into O with the
// key it names.
type Encryptable[O any] interface {
	// UsesKey returns the key the item is encrypted with.
	UsesKey() SymmetricKeyRef

	// Encrypt encrypts the item with key. The item may add local keys to
	// ctx, which are cleared after each item in list operations.
	Encrypt(ctx *Context, key SymmetricKeyRef) (O, error)
}

// Decryptable is an encrypted item that decrypts itself into O.
type Decryptable[O any] interface {
	UsesKey() SymmetricKeyRef
	Decrypt(ctx *Context, key SymmetricKeyRef) (O, error)
}

// Encrypt encrypts one item in a fresh Context.
func Encrypt[O any, T Encryptable[O]](svc *CryptoService, item T) (O, error) {
	ctx := svc.Context()
	defer ctx.Close()
	return item.Encrypt(ctx, item.UsesKey())
}

// Decrypt decrypts one item in a fresh Context.
func Decrypt[O any, T Decryptable[O]](svc *CryptoService, item T) (O, error) {
	ctx := svc.Context()
	defer ctx.Close()
	return item.Decrypt(ctx, item.UsesKey())
}

// EncryptList encrypts items concurrently and returns the results in
// input order. The first error cancels the remaining chunks and is
// returned.
func EncryptList[O any, T Encryptable[O]](ctx context.Context, svc *CryptoService, items []T) ([]O, error) {
	return processList(ctx, svc, items, func(c *Context, item T) (O, error) {
		return item.Encrypt(c, item.UsesKey())
	})
}

// DecryptList decrypts items concurrently and returns the results in
// input order.
func DecryptList[O any, T Decryptable[O]](ctx context.Context, svc *CryptoService, items []T) ([]O, error) {
	return processList(ctx, svc, items, func(c *Context, item T) (O, error) {
		return item.Decrypt(c, item.UsesKey())
	})
}

// ChunkSize is the number of items each worker handles for n items.
func (s *CryptoService) ChunkSize(n int) int {
	return max(1+n/s.workers, s.minChunk)
}

func processList[T, O any](ctx context.Context, svc *CryptoService, items []T, fn func(*Context, T) (O, error)) (out []O, err error) {
	start := time.Now()
	defer func() {
		metrics.Observe(metrics.OpEncryptList, metrics.KeySymmetric, start, err)
	}()

	out = make([]O, len(items))
	if len(items) == 0 {
		return out, nil
	}

	chunk := svc.ChunkSize(len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.workers)

	for lo := 0; lo < len(items); lo += chunk {
		hi := min(lo+chunk, len(items))
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c := svc.Context()
			defer c.Close()
			for i := lo; i < hi; i++ {
				o, err := fn(c, items[i])
				c.Clear()
				if err != nil {
					return err
				}
				out[i] = o
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
