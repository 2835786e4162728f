package service

import "errors"

var (
	// ErrUnknownType indicates a type or container name is not registered.
	ErrUnknownType = errors.New("unknown type")

	// ErrShapeMismatch indicates a value or container does not fit the parsed signature.
	ErrShapeMismatch = errors.New("shape mismatch")
)
