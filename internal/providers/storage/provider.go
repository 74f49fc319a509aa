// Package storage persists rendered invoice documents.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object_not_found")

// Provider is a blob store keyed by object path. Put returns a URL the
// document can be fetched from later.
type Provider interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NoOpProvider swallows writes. Used when no object store is configured;
// invoices still render, they just are not archived.
type NoOpProvider struct{}

func (p *NoOpProvider) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	return "", nil
}

func (p *NoOpProvider) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, ErrObjectNotFound
}

func (p *NoOpProvider) Delete(ctx context.Context, key string) error {
	return nil
}
