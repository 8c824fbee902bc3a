package common

import "fmt"

// StoreErrType enumerates the failure modes of the keyed stores in this
// repository (peer store, correlation store).
type StoreErrType uint32

const (
	// KeyNotFound means the requested key does not exist.
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists means an insert collided with an existing key.
	KeyAlreadyExists
	// Empty means the store holds nothing to return.
	Empty
	// Closed means the store was closed and refuses new work.
	Closed
)

// StoreErr ...
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Empty:
		m = "Empty"
	case Closed:
		m = "Closed"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that it's code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
