// Package s3 implements internal/bundle.Store as a payload-offload wrapper
// around another Store: bundles whose payload exceeds a configured size
// are spilled to S3 (or an S3-compatible endpoint) and rehydrated on pop,
// while the queue/sequence bookkeeping itself is delegated to an inner
// Store (internal/store/badger in practice). Conventions — retry/backoff
// shape, client construction, bucket-access verification — mirror the
// teacher's pkg/store/content/s3.S3ContentStore.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/pkg/eid"
)

// offloadMarkerBlockType is a BPv7 private/experimental block type (RFC
// 9171 reserves 192-255 for that range) this package appends to a bundle
// whose payload it has offloaded, carrying the S3 object key. It is
// stripped again on rehydration and never reaches the wire codec or a
// delivered ADU.
const offloadMarkerBlockType bundle.BlockType = 200

// Config configures a Store.
type Config struct {
	Client *s3.Client
	Bucket string

	// KeyPrefix is prepended to every object key.
	KeyPrefix string

	// OffloadThreshold is the minimum payload length (bytes) at which a
	// bundle's payload is spilled to S3 instead of kept inline. Default:
	// 256KiB.
	OffloadThreshold int

	MaxRetries        uint
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

type retryConfig struct {
	maxRetries        uint
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

// api is the slice of *s3.Client this package calls, narrowed to an
// interface so tests can exercise the offload/rehydrate logic against a
// fake instead of a live bucket.
type api interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store wraps inner, offloading large payloads to S3.
type Store struct {
	inner     bundle.Store
	client    api
	bucket    string
	keyPrefix string
	threshold int
	retry     retryConfig
}

// New constructs a Store, verifying bucket access the way
// NewS3ContentStore does.
func New(ctx context.Context, inner bundle.Store, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}
	if inner == nil {
		return nil, fmt.Errorf("s3: inner store is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("s3: failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return newStore(inner, cfg.Client, cfg)
}

func newStore(inner bundle.Store, client api, cfg Config) (*Store, error) {
	threshold := cfg.OffloadThreshold
	if threshold == 0 {
		threshold = 256 * 1024
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff == 0 {
		initialBackoff = 100 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 2 * time.Second
	}
	backoffMultiplier := cfg.BackoffMultiplier
	if backoffMultiplier == 0 {
		backoffMultiplier = 2.0
	}

	return &Store{
		inner:     inner,
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		threshold: threshold,
		retry: retryConfig{
			maxRetries:        maxRetries,
			initialBackoff:    initialBackoff,
			maxBackoff:        maxBackoff,
			backoffMultiplier: backoffMultiplier,
		},
	}, nil
}

func (s *Store) Init(identifier string) error { return s.inner.Init(identifier) }
func (s *Store) Close() error                 { return s.inner.Close() }

func (s *Store) SetUint64(key string, value uint64) error { return s.inner.SetUint64(key, value) }
func (s *Store) GetUint64(key string) (uint64, bool, error) {
	return s.inner.GetUint64(key)
}

// objectKey derives a deterministic S3 key from a bundle's unique identity
// (spec §3's UniqueID tuple), so the same bundle always offloads to the
// same object and no separate offload index needs to be persisted.
func (s *Store) objectKey(b *bundle.Bundle) string {
	id := b.ExtractUniqueID()
	key := fmt.Sprintf("%s/%d-%d-%d", id.SourceEID, id.CreationTimestampMs, id.SequenceNumber, id.FragmentOffset)
	if s.keyPrefix != "" {
		return s.keyPrefix + key
	}
	return key
}

// StoreBundle offloads b's payload to S3 if it is at least threshold bytes,
// then delegates the (temporarily payload-stripped) bundle to inner for
// queue bookkeeping. b is restored to its original, caller-visible state
// before StoreBundle returns.
func (s *Store) StoreBundle(b *bundle.Bundle) error {
	payloadBlock := b.Payload()
	if payloadBlock == nil || len(payloadBlock.Payload) < s.threshold {
		return s.inner.StoreBundle(b)
	}

	key := s.objectKey(b)
	if err := s.putWithRetry(context.Background(), key, payloadBlock.Payload); err != nil {
		return fmt.Errorf("s3: failed to offload payload: %w", err)
	}

	original := payloadBlock.Payload
	payloadBlock.Payload = nil
	b.Blocks = append(b.Blocks, &bundle.ExtensionBlock{Type: offloadMarkerBlockType, Payload: []byte(key)})

	err := s.inner.StoreBundle(b)

	b.Blocks = b.Blocks[:len(b.Blocks)-1]
	payloadBlock.Payload = original

	if err != nil {
		return err
	}
	return nil
}

// PopSequenceFor delegates to inner and rehydrates the result.
func (s *Store) PopSequenceFor(destination eid.EID) (*bundle.Bundle, bool, error) {
	b, ok, err := s.inner.PopSequenceFor(destination)
	if err != nil || !ok {
		return b, ok, err
	}
	if err := s.rehydrate(b); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// PopSequenceNext delegates to inner and rehydrates the result.
func (s *Store) PopSequenceNext() (*bundle.Bundle, bool, error) {
	b, ok, err := s.inner.PopSequenceNext()
	if err != nil || !ok {
		return b, ok, err
	}
	if err := s.rehydrate(b); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// rehydrate strips an offload marker block (if present) and refetches the
// real payload from S3 into the bundle's payload block.
func (s *Store) rehydrate(b *bundle.Bundle) error {
	if len(b.Blocks) == 0 {
		return nil
	}
	last := b.Blocks[len(b.Blocks)-1]
	if last.Type != offloadMarkerBlockType {
		return nil
	}
	key := string(last.Payload)

	payload, err := s.getWithRetry(context.Background(), key)
	if err != nil {
		return fmt.Errorf("s3: failed to rehydrate payload for key %q: %w", key, err)
	}

	b.Blocks = b.Blocks[:len(b.Blocks)-1]
	if pb := b.Payload(); pb != nil {
		pb.Payload = payload
	}
	return nil
}

func (s *Store) putWithRetry(ctx context.Context, key string, data []byte) error {
	var lastErr error
	backoff := s.retry.initialBackoff
	for attempt := uint(0); attempt <= s.retry.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff = nextBackoff(backoff, s.retry.backoffMultiplier, s.retry.maxBackoff)
		}
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (s *Store) getWithRetry(ctx context.Context, key string) ([]byte, error) {
	var lastErr error
	backoff := s.retry.initialBackoff
	for attempt := uint(0); attempt <= s.retry.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff = nextBackoff(backoff, s.retry.backoffMultiplier, s.retry.maxBackoff)
		}
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			lastErr = err
			continue
		}
		data, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	return nil, lastErr
}

func nextBackoff(current time.Duration, multiplier float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * multiplier)
	if next > max || next <= 0 {
		return max
	}
	return time.Duration(math.Min(float64(next), float64(max)))
}

var _ bundle.Store = (*Store)(nil)
