package ports

import "context"

// HealthChecker checks one backing dependency (redis, database).
// Check returns an error when the dependency is unreachable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
