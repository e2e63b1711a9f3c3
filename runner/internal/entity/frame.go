package entity

type Frame struct {
	Name     string
	Sequence int
	Payload  []byte
	Metadata map[string]string
}
