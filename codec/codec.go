// Package codec (de)serializes session data for the cache.
//
// Codecs used for session data should be deterministic: equal values must
// encode to equal bytes. The store compares encoded snapshots to decide
// whether a write is needed, so a codec with unstable map ordering only costs
// extra writes, never correctness.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
