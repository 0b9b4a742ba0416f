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

package encstring

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// splitEncString separates the type header from the base64 fields. Strings
// without a header predate versioning: three fields are read as type 1 and
// anything else as type 0.
func splitEncString(s string) (string, []string) {
	header := strings.Split(s, ".")
	if len(header) == 2 {
		return header[0], strings.Split(header[1], "|")
	}
	parts := strings.Split(s, "|")
	if len(parts) == 3 {
		return "1", parts
	}
	return "0", parts
}

func checkLength(buf []byte, expected int) error {
	if len(buf) < expected {
		return &InvalidLengthError{Expected: expected, Got: len(buf)}
	}
	return nil
}

func fromB64Vec(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return b, nil
}

// fromB64 decodes s into dst, which must match the decoded length exactly.
func fromB64(s string, dst []byte) error {
	b, err := fromB64Vec(s)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return &InvalidLengthError{Expected: len(dst), Got: len(b)}
	}
	copy(dst, b)
	return nil
}

func joinB64(parts ...[]byte) string {
	enc := make([]string, len(parts))
	for i, p := range parts {
		enc[i] = base64.StdEncoding.EncodeToString(p)
	}
	return strings.Join(enc, "|")
}
