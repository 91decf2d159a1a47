package s3

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnkit/bpa/internal/bundle"
	"github.com/dtnkit/bpa/pkg/eid"
)

// fakeAPI is an in-memory stand-in for *s3.Client, used so these tests
// exercise the offload/rehydrate logic without a live bucket.
type fakeAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeAPI() *fakeAPI { return &fakeAPI{objects: make(map[string][]byte)} }

func (f *fakeAPI) HeadBucket(context.Context, *awss3.HeadBucketInput, ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	return &awss3.HeadBucketOutput{}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.objects[*in.Key] = data
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	f.mu.Lock()
	data, ok := f.objects[*in.Key]
	f.mu.Unlock()
	if !ok {
		return nil, errObjectNotFound(*in.Key)
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

type errObjectNotFound string

func (e errObjectNotFound) Error() string { return "not found: " + string(e) }

// fakeInner is an in-memory internal/bundle.Store stand-in.
type fakeInner struct {
	mu      sync.Mutex
	queue   []*bundle.Bundle
	scalars map[string]uint64
}

func newFakeInner() *fakeInner {
	return &fakeInner{scalars: make(map[string]uint64)}
}

func (f *fakeInner) Init(string) error { return nil }
func (f *fakeInner) Close() error      { return nil }

func (f *fakeInner) StoreBundle(b *bundle.Bundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Snapshot block slice and payload bytes so later caller-side mutation
	// (s3.Store restoring the original payload) cannot corrupt what was
	// "persisted", matching a real encode-on-write store.
	cp := *b
	cp.Blocks = append([]*bundle.ExtensionBlock(nil), b.Blocks...)
	for i, blk := range cp.Blocks {
		blkCopy := *blk
		blkCopy.Payload = append([]byte(nil), blk.Payload...)
		cp.Blocks[i] = &blkCopy
	}
	f.queue = append(f.queue, &cp)
	return nil
}

func (f *fakeInner) PopSequenceFor(destination eid.EID) (*bundle.Bundle, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.queue {
		if b.DestEID.NodeID().Equal(destination.NodeID()) {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			return b, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeInner) PopSequenceNext() (*bundle.Bundle, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, false, nil
	}
	b := f.queue[0]
	f.queue = f.queue[1:]
	return b, true, nil
}

func (f *fakeInner) SetUint64(key string, value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scalars[key] = value
	return nil
}

func (f *fakeInner) GetUint64(key string) (uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.scalars[key]
	return v, ok, nil
}

var _ bundle.Store = (*fakeInner)(nil)

func mustEID(t *testing.T, raw string) eid.EID {
	t.Helper()
	e, err := eid.Parse(raw)
	require.NoError(t, err)
	return e
}

func newTestStore(t *testing.T, threshold int) (*Store, *fakeAPI, *fakeInner) {
	t.Helper()
	fa := newFakeAPI()
	fi := newFakeInner()
	s, err := newStore(fi, fa, Config{Bucket: "test-bucket", OffloadThreshold: threshold})
	require.NoError(t, err)
	return s, fa, fi
}

func TestStoreBundleBelowThresholdSkipsOffload(t *testing.T) {
	s, fa, _ := newTestStore(t, 1024)

	src := mustEID(t, "dtn://local/app")
	dst := mustEID(t, "dtn://peer/app")
	b, err := bundle.NewLocalBundle(bundle.V7, src, dst, eid.NullDTN, 0, 60_000, 1_000, 1, []byte("small"))
	require.NoError(t, err)

	require.NoError(t, s.StoreBundle(b))
	assert.Equal(t, 0, fa.puts)
	assert.Equal(t, []byte("small"), b.Payload().Payload)
}

func TestStoreBundleAboveThresholdOffloadsAndRestoresCaller(t *testing.T) {
	s, fa, _ := newTestStore(t, 4)

	src := mustEID(t, "dtn://local/app")
	dst := mustEID(t, "dtn://peer/app")
	payload := []byte("this payload exceeds the threshold")
	b, err := bundle.NewLocalBundle(bundle.V7, src, dst, eid.NullDTN, 0, 60_000, 1_000, 1, payload)
	require.NoError(t, err)
	blockCountBefore := len(b.Blocks)

	require.NoError(t, s.StoreBundle(b))

	assert.Equal(t, 1, fa.puts)
	// The caller's bundle is restored to its original, unoffloaded state.
	assert.Equal(t, payload, b.Payload().Payload)
	assert.Len(t, b.Blocks, blockCountBefore)
}

func TestPopSequenceForRehydratesOffloadedPayload(t *testing.T) {
	s, _, _ := newTestStore(t, 4)

	src := mustEID(t, "dtn://local/app")
	dst := mustEID(t, "dtn://peer/app")
	payload := []byte("this payload exceeds the threshold")
	b, err := bundle.NewLocalBundle(bundle.V7, src, dst, eid.NullDTN, 0, 60_000, 1_000, 1, payload)
	require.NoError(t, err)

	require.NoError(t, s.StoreBundle(b))

	got, ok, err := s.PopSequenceFor(dst)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got.Payload().Payload)
	// The offload marker block never survives rehydration.
	for _, blk := range got.Blocks {
		assert.NotEqual(t, offloadMarkerBlockType, blk.Type)
	}
}

func TestPopSequenceNextRehydratesOffloadedPayload(t *testing.T) {
	s, _, _ := newTestStore(t, 4)

	src := mustEID(t, "dtn://local/app")
	dst := mustEID(t, "dtn://peer/app")
	payload := []byte("this payload exceeds the threshold")
	b, err := bundle.NewLocalBundle(bundle.V7, src, dst, eid.NullDTN, 0, 60_000, 1_000, 1, payload)
	require.NoError(t, err)
	require.NoError(t, s.StoreBundle(b))

	got, ok, err := s.PopSequenceNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got.Payload().Payload)
}

func TestSetAndGetUint64Delegates(t *testing.T) {
	s, _, fi := newTestStore(t, 4)

	require.NoError(t, s.SetUint64("k", 7))
	v, ok, err := s.GetUint64("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(7), v)
	assert.Equal(t, uint64(7), fi.scalars["k"])
}
