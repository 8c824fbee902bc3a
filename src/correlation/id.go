package correlation

import (
	"crypto/rand"
	"fmt"
)

// ID is a correlation ID. It binds an outgoing request to its eventual reply.
type ID string

// NewID returns a random 128-bit ID formatted as a UUID.
func NewID() ID {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return ID(fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16]))
}

func (id ID) String() string {
	return string(id)
}
