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
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type symmetricKind uint8

const (
	symmetricUser symmetricKind = iota
	symmetricOrganization
	symmetricLocal
)

// SymmetricKeyRef names a symmetric key. The zero value is UserKeyRef.
type SymmetricKeyRef struct {
	kind symmetricKind
	org  uuid.UUID
	name string
}

var (
	// UserKeyRef is the user's vault key.
	UserKeyRef = SymmetricKeyRef{kind: symmetricUser}
)

// OrganizationKeyRef is the key of organization id.
func OrganizationKeyRef(id uuid.UUID) SymmetricKeyRef {
	return SymmetricKeyRef{kind: symmetricOrganization, org: id}
}

// LocalSymmetricRef names a key that lives only in one Context.
func LocalSymmetricRef(name string) SymmetricKeyRef {
	return SymmetricKeyRef{kind: symmetricLocal, name: name}
}

// IsLocal reports whether the ref addresses a context-local key.
func (r SymmetricKeyRef) IsLocal() bool {
	return r.kind == symmetricLocal
}

// IsOrganization reports whether the ref addresses an organization key.
func (r SymmetricKeyRef) IsOrganization() bool {
	return r.kind == symmetricOrganization
}

// OrganizationID returns the organization of an organization key ref.
func (r SymmetricKeyRef) OrganizationID() (uuid.UUID, bool) {
	return r.org, r.kind == symmetricOrganization
}

// Compare orders refs by kind, then organization id, then name.
func (r SymmetricKeyRef) Compare(o SymmetricKeyRef) int {
	if c := cmp.Compare(r.kind, o.kind); c != 0 {
		return c
	}
	if c := bytes.Compare(r.org[:], o.org[:]); c != 0 {
		return c
	}
	return strings.Compare(r.name, o.name)
}

func (r SymmetricKeyRef) String() string {
	switch r.kind {
	case symmetricUser:
		return "User"
	case symmetricOrganization:
		return fmt.Sprintf("Organization(%s)", r.org)
	default:
		return fmt.Sprintf("Local(%s)", r.name)
	}
}

type asymmetricKind uint8

const (
	asymmetricUserPrivateKey asymmetricKind = iota
	asymmetricLocal
)

// AsymmetricKeyRef names an RSA private key. The zero value is
// UserPrivateKeyRef.
type AsymmetricKeyRef struct {
	kind asymmetricKind
	name string
}

var (
	// UserPrivateKeyRef is the user's account private key.
	UserPrivateKeyRef = AsymmetricKeyRef{kind: asymmetricUserPrivateKey}
)

// LocalAsymmetricRef names a private key that lives only in one Context.
func LocalAsymmetricRef(name string) AsymmetricKeyRef {
	return AsymmetricKeyRef{kind: asymmetricLocal, name: name}
}

// IsLocal reports whether the ref addresses a context-local key.
func (r AsymmetricKeyRef) IsLocal() bool {
	return r.kind == asymmetricLocal
}

// Compare orders refs by kind, then name.
func (r AsymmetricKeyRef) Compare(o AsymmetricKeyRef) int {
	if c := cmp.Compare(r.kind, o.kind); c != 0 {
		return c
	}
	return strings.Compare(r.name, o.name)
}

func (r AsymmetricKeyRef) String() string {
	if r.kind == asymmetricUserPrivateKey {
		return "UserPrivateKey"
	}
	return fmt.Sprintf("Local(%s)", r.name)
}
