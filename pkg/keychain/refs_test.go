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
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSymmetricKeyRefOrdering(t *testing.T) {
	orgA := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	orgB := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	refs := []SymmetricKeyRef{
		LocalSymmetricRef("b"),
		OrganizationKeyRef(orgB),
		LocalSymmetricRef("a"),
		UserKeyRef,
		OrganizationKeyRef(orgA),
	}
	slices.SortFunc(refs, SymmetricKeyRef.Compare)

	assert.Equal(t, []SymmetricKeyRef{
		UserKeyRef,
		OrganizationKeyRef(orgA),
		OrganizationKeyRef(orgB),
		LocalSymmetricRef("a"),
		LocalSymmetricRef("b"),
	}, refs)
	assert.Zero(t, OrganizationKeyRef(orgA).Compare(OrganizationKeyRef(orgA)))
}

func TestSymmetricKeyRefAccessors(t *testing.T) {
	org := uuid.MustParse("a09726a0-9590-49d1-a5f5-afe300b6a515")

	assert.Equal(t, "User", UserKeyRef.String())
	assert.Equal(t, "Organization(a09726a0-9590-49d1-a5f5-afe300b6a515)", OrganizationKeyRef(org).String())
	assert.Equal(t, "Local(cipher)", LocalSymmetricRef("cipher").String())

	assert.False(t, UserKeyRef.IsLocal())
	assert.True(t, LocalSymmetricRef("x").IsLocal())
	assert.True(t, OrganizationKeyRef(org).IsOrganization())

	id, ok := OrganizationKeyRef(org).OrganizationID()
	assert.True(t, ok)
	assert.Equal(t, org, id)
	_, ok = UserKeyRef.OrganizationID()
	assert.False(t, ok)

	var zero SymmetricKeyRef
	assert.Equal(t, UserKeyRef, zero)
}

func TestAsymmetricKeyRef(t *testing.T) {
	assert.Equal(t, "UserPrivateKey", UserPrivateKeyRef.String())
	assert.Equal(t, "Local(device)", LocalAsymmetricRef("device").String())
	assert.True(t, LocalAsymmetricRef("device").IsLocal())
	assert.False(t, UserPrivateKeyRef.IsLocal())
	assert.Negative(t, UserPrivateKeyRef.Compare(LocalAsymmetricRef("")))
	assert.Negative(t, LocalAsymmetricRef("a").Compare(LocalAsymmetricRef("b")))
}
