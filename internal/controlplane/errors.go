package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrInvalidNode = errors.New("controlplane: invalid node address")
)
