package charter

import "github.com/google/uuid"

// newID returns a fresh random identifier, used whenever a construct is
// created without caller-supplied id (instances, suspensions, generated
// node ids).
func newID() string {
	return uuid.NewString()
}

// NewID exposes newID to other packages in this module that need to mint
// identifiers with the same scheme (instance ids, suspend ids, tool-call
// ids) without each depending on google/uuid directly.
func NewID() string {
	return newID()
}
