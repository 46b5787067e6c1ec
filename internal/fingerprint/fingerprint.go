// Package fingerprint computes stable SHA-256 fingerprints for metadata and
// attribute structures.
//
// Logically identical structures must always hash identically regardless of
// key order, so nested maps are serialized with their keys sorted depth-first
// into canonical JSON before hashing. The encoding is fixed (JSON, sorted
// keys, no extra whitespace) so fingerprints survive process restarts and can
// be reproduced from other languages.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Data returns the lowercase hex SHA-256 digest of the raw string.
func Data(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Structure returns the fingerprint of an arbitrary nested structure
// (maps, slices, scalars — the JSON data model). Two structurally equal
// values differing only in map key order produce the same fingerprint.
func Structure(v any) (string, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize: %w", err)
	}
	return Data(buf.String()), nil
}

// writeCanonical serializes v as canonical JSON: object keys sorted,
// no insignificant whitespace.
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case []string:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			eb, err := json.Marshal(e)
			if err != nil {
				return err
			}
			buf.Write(eb)
		}
		buf.WriteByte(']')
		return nil

	case map[string][]string:
		// Forma habitual de atributos liberados: nombre -> lista de valores.
		m := make(map[string]any, len(t))
		for k, vs := range t {
			m[k] = vs
		}
		return writeCanonical(buf, m)

	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return writeCanonical(buf, m)

	default:
		// Scalars and anything else: encoding/json already sorts map keys,
		// so unknown map types still canonicalize correctly.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
