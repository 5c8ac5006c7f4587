package types

import "context"

// Classifier maps one feature vector to a class index in [0, NumClasses).
// Each call is one independent request/response exchange.
type Classifier interface {
	Classify(ctx context.Context, features FeatureVector) (int, error)
	Close() error
}

// PolicyApplier turns a class index into a device-level side effect.
type PolicyApplier interface {
	Apply(class int) error
}
