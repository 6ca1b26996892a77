package dump

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCBOR serializes a Summary to canonical CBOR bytes.
func MarshalCBOR(s *Summary) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalCBOR deserializes a Summary from CBOR bytes.
func UnmarshalCBOR(data []byte) (*Summary, error) {
	var s Summary
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("dump: unmarshal summary: %w", err)
	}
	return &s, nil
}
