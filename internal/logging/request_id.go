package logging

import "github.com/google/uuid"

// GenerateRequestID generates a unique request ID.
// The format is a random (version 4) UUID, e.g.
// "9b2f0c1e-3f4a-4d7e-8a51-2c6a0f9d4b13".
func GenerateRequestID() string {
	return uuid.NewString()
}
