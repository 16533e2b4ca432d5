package model

import (
	"context"
	"sync"
)

// MockClient is a scripted in-memory Client useful for tests & examples.
// Replies are consumed in order by Call and CallStream alike.
type MockClient struct {
	info Info

	// ChunkSize is the number of runes per streamed fragment.
	ChunkSize int

	mu       sync.Mutex
	replies  []Response
	requests []Request
}

// NewMockClient constructs an empty MockClient.
func NewMockClient(name string) *MockClient {
	return &MockClient{info: Info{Name: name, Provider: "mock"}, ChunkSize: 3}
}

// AddReply queues successful replies.
func (m *MockClient) AddReply(contents ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range contents {
		m.replies = append(m.replies, Succeeded(c))
	}

	return m
}

// AddResponse queues an arbitrary response, e.g. a Failed one.
func (m *MockClient) AddResponse(resp Response) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.replies = append(m.replies, resp)

	return m
}

// Requests returns every request received so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// Pending returns the number of unconsumed replies.
func (m *MockClient) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.replies)
}

func (m *MockClient) next(req Request) Response {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return Failed(500, "mock: no scripted reply")
	}

	resp := m.replies[0]
	m.replies = m.replies[1:]

	return resp
}

// Call implements Client.
func (m *MockClient) Call(_ context.Context, req Request) Response {
	return m.next(req)
}

// CallStream implements Client; emits the scripted reply in rune chunks.
func (m *MockClient) CallStream(ctx context.Context, req Request) <-chan StreamChunk {
	resp := m.next(req)
	if resp.IsError() {
		return StreamFailure(resp.StatusCode, resp.ErrorMessage)
	}

	size := m.ChunkSize
	if size <= 0 {
		size = 1
	}

	out := make(chan StreamChunk, 16)

	go func() {
		defer close(out)

		runes := []rune(resp.Content)
		for i := 0; i < len(runes); i += size {
			end := i + size
			if end > len(runes) {
				end = len(runes)
			}

			select {
			case <-ctx.Done():
				out <- StreamChunk{Err: &StreamError{Message: ctx.Err().Error()}}
				return
			case out <- StreamChunk{Content: string(runes[i:end])}:
			}
		}
	}()

	return out
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }
