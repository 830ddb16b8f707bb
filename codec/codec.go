// Package codec converts typed objects to and from the string payloads the remote store
// holds, for the Typed[V] view.
package codec

// Codec encodes/decodes values V to the bytes stored under a string key.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
