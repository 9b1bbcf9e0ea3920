package usecase

import "fmt"

// ErrPersistence indicates an infrastructure/repository failure inside a use case.
var ErrPersistence = fmt.Errorf("chat use case persistence error")

// ErrAuthorization indicates the relationship service could not be consulted.
// Distinct from a negative eligibility decision, which surfaces domain errors.
var ErrAuthorization = fmt.Errorf("chat use case authorization error")
