package coretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/inkwell-app/inkwell/internal/core"
)

// MemObjectClient is an in-memory core.ObjectClient keyed by bucket/key.
type MemObjectClient struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemObjectClient() *MemObjectClient {
	return &MemObjectClient{blobs: make(map[string][]byte)}
}

var _ core.ObjectClient = (*MemObjectClient)(nil)

func (m *MemObjectClient) key(bucket, key string) string { return bucket + "/" + key }

// Put seeds a blob without going through UploadFile.
func (m *MemObjectClient) Put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[m.key(bucket, key)] = data
}

func (m *MemObjectClient) UploadFile(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[m.key(bucket, key)] = data
	return "https://" + bucket + ".example.com/" + key, nil
}

func (m *MemObjectClient) DeleteFile(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, m.key(bucket, key))
	return nil
}

func (m *MemObjectClient) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[m.key(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	return data, nil
}

func (m *MemObjectClient) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, err := m.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// FakeLLM is a scriptable core.LLMProvider. Unset funcs return Reply.
type FakeLLM struct {
	mu sync.Mutex

	Reply          string
	GenerateFunc   func(systemPrompt, userPrompt string) (string, error)
	BlobFunc       func(prompt, mimeType string, data []byte) (string, error)
	FileURIFunc    func(prompt, mimeType, uri string) (string, error)
	GenerateCalls  int
	BlobCalls      int
	FileURICalls   int
	LastUserPrompt string
	LastBlobMime   string
	LastFileURI    string
}

var _ core.LLMProvider = (*FakeLLM)(nil)

func (f *FakeLLM) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	f.GenerateCalls++
	f.LastUserPrompt = userPrompt
	fn := f.GenerateFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(systemPrompt, userPrompt)
	}
	return f.Reply, nil
}

func (f *FakeLLM) GenerateWithBlob(_ context.Context, prompt, mimeType string, data []byte) (string, error) {
	f.mu.Lock()
	f.BlobCalls++
	f.LastBlobMime = mimeType
	fn := f.BlobFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(prompt, mimeType, data)
	}
	return f.Reply, nil
}

func (f *FakeLLM) GenerateWithFileURI(_ context.Context, prompt, mimeType, uri string) (string, error) {
	f.mu.Lock()
	f.FileURICalls++
	f.LastFileURI = uri
	fn := f.FileURIFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(prompt, mimeType, uri)
	}
	return f.Reply, nil
}
