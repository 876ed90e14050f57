// Package storage keeps run artifacts on disk and optionally publishes them.
package storage

import "context"

// Publisher copies a finished artifact somewhere durable and returns its URI.
type Publisher interface {
	Publish(ctx context.Context, localPath, objectName string) (string, error)
}
