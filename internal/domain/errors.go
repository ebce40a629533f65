package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product cannot be found in OpenFoodFacts
	ErrProductNotFound = errors.New("product not found in OpenFoodFacts database")

	// ErrProductRejected is returned when a record fails validation
	ErrProductRejected = errors.New("product rejected by validation engine")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrOFFAPIFailure is returned when an OpenFoodFacts API request fails
	ErrOFFAPIFailure = errors.New("OpenFoodFacts API request failed")

	// ErrStorageFailure is returned when the product store cannot persist a batch
	ErrStorageFailure = errors.New("product storage request failed")
)
