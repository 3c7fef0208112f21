package regions

import "github.com/google/uuid"

// IDGenerator returns a fresh id for a region of the given kind.
type IDGenerator func(kind Kind) string

// UUIDGenerator produces ids such as "image-0190c7c2-...". UUIDv7 keeps them
// roughly creation ordered.
func UUIDGenerator(kind Kind) string {
	return string(kind) + "-" + uuid.Must(uuid.NewV7()).String()
}
