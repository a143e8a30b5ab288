// Package storage abstracts the file store the pipeline reads answer
// keys and sheets from and writes results to. The interface stands at
// the cloud-store boundary; the filesystem implementation serves local
// runs and tests.
package storage

import "io"

// BlobStore is the file-store port.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	List(prefix string) ([]string, error)
}
