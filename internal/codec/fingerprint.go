package codec

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"lukechampine.com/blake3"
)

// CanonicalJSON renders v as compact JSON with object keys sorted at every
// level, so equal documents produce identical bytes.
func CanonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	// encoding/json sorts map keys.
	return json.Marshal(obj)
}

// Fingerprint is the hex BLAKE3-256 digest of the canonical document.
func Fingerprint(doc *Document) (string, error) {
	data, err := CanonicalJSON(doc)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
