package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	characters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 12
)

// GenerateID returns a short url-safe identifier used for workspaces and connections.
func GenerateID() (string, error) {
	return gonanoid.Generate(characters, idLength)
}
