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

package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"master password", []byte("asdfasdfasdf"), nil},
		{"pin", []byte("1234"), nil},
		{"unicode", []byte("пароль密码"), nil},
		{"empty", []byte{}, ErrEmptyPassword},
		{"nil", nil, ErrEmptyPassword},
		{"invalid utf-8", []byte{0xff, 0xfe}, ErrInvalidUtf8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, p.Bytes())
		})
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := []byte("secret")
	p, err := New(in)
	require.NoError(t, err)

	clear(in)
	s, err := p.String()
	require.NoError(t, err)
	assert.Equal(t, "secret", s)

	out := p.Bytes()
	out[0] = 'X'
	assert.Equal(t, []byte("secret"), p.Bytes())
}

func TestClear(t *testing.T) {
	p := MustFromString("asdfasdfasdf")
	p.Clear()
	p.Clear()

	assert.Nil(t, p.Bytes())
	_, err := p.String()
	assert.ErrorIs(t, err, ErrPasswordCleared)
}

func TestLen(t *testing.T) {
	assert.Equal(t, 6, MustFromString("пароль").(*Secret).Len())
	assert.Equal(t, 4, MustFromString("1234").(*Secret).Len())
}

func TestEqual(t *testing.T) {
	a := MustFromString("password123")
	b := MustFromString("password123")
	c := MustFromString("password124")

	ok, err := Equal(a, b)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Equal(a, c)
	require.NoError(t, err)
	assert.False(t, ok)

	c.Clear()
	_, err = Equal(a, c)
	assert.ErrorIs(t, err, ErrPasswordCleared)
}

func TestMustFromStringPanics(t *testing.T) {
	assert.Panics(t, func() { MustFromString("") })
}
