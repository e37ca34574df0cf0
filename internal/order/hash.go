package order

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRecordSet prefixes record-set fingerprints. The version suffix allows
// changing the canonical encoding without colliding with old fingerprints.
const DomainRecordSet = "orderdedup/recordset/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical encoding of a full record set.
// Two stores with equal fingerprints hold byte-identical record sets,
// independent of read order.
func Fingerprint(orders []Order) (string, error) {
	data, err := MarshalCanonicalSet(orders)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainRecordSet, data), nil
}

// MustFingerprint is Fingerprint for callers holding records that are known
// to encode (all records decoded from a store do).
func MustFingerprint(orders []Order) string {
	fp, err := Fingerprint(orders)
	if err != nil {
		panic(err)
	}
	return fp
}
