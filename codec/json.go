package codec

import "encoding/json"

// JSON encodes with encoding/json, which writes map keys sorted.
// Numbers decode into float64 when V holds interfaces.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
