package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ObjectStore keeps images in a JetStream object store bucket.
type ObjectStore struct {
	conn  *nats.Conn
	store jetstream.ObjectStore
}

func NewObjectStore(ctx context.Context, natsURL, bucket string) (*ObjectStore, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "Product images",
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create object store bucket: %w", err)
		}
	}

	return &ObjectStore{conn: conn, store: store}, nil
}

func (s *ObjectStore) Save(ctx context.Context, data []byte) (string, error) {
	name, contentType, err := sniff(data)
	if err != nil {
		return "", err
	}

	meta := jetstream.ObjectMeta{
		Name:    name,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	if _, err := s.store.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store object: %w", err)
	}
	return PublicPrefix + name, nil
}

func (s *ObjectStore) Open(ctx context.Context, name string) (*Image, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}

	data, err := s.store.GetBytes(ctx, name)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	contentType := contentTypeFor(name)
	if info, err := s.store.GetInfo(ctx, name); err == nil && info.Headers != nil {
		if ct := info.Headers.Get("Content-Type"); ct != "" {
			contentType = ct
		}
	}
	return &Image{Name: name, ContentType: contentType, Data: data}, nil
}

func (s *ObjectStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
