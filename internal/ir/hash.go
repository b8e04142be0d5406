package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainFlow     = "promote/flow/v1"
	DomainSnapshot = "promote/snapshot/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// versionObject builds the canonical view of a flow version. For
// fingerprints reference order is not significant, so sortRefs sorts and
// dedupes them; snapshots keep the author's order.
func versionObject(v FlowVersion, sortRefs bool) Object {
	obj := Object{
		"display_name": String(v.DisplayName),
	}
	if len(v.Definition) > 0 {
		obj["definition"] = v.Definition
	}
	if len(v.References) > 0 {
		refs := slices.Clone(v.References)
		if sortRefs {
			slices.Sort(refs)
			refs = slices.Compact(refs)
		}
		arr := make(Array, len(refs))
		for i, r := range refs {
			arr[i] = String(r)
		}
		obj["references"] = arr
	}
	return obj
}

// Fingerprint computes the content fingerprint of a flow version.
// Two versions with equal fingerprints are treated as the same content.
func Fingerprint(v FlowVersion) (string, error) {
	canonical, err := MarshalCanonical(versionObject(v, true))
	if err != nil {
		return "", fmt.Errorf("fingerprint %q: %w", v.DisplayName, err)
	}
	return hashWithDomain(DomainFlow, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the definition is known to be valid.
func MustFingerprint(v FlowVersion) string {
	fp, err := Fingerprint(v)
	if err != nil {
		panic(err)
	}
	return fp
}

// SnapshotID computes the content-addressed id of an encoded snapshot.
func SnapshotID(encoded []byte) string {
	return hashWithDomain(DomainSnapshot, encoded)
}
