package core

import (
	"context"
	"sync"
)

// AsyncClient provides asynchronous memory operations.
//
// It wraps the synchronous Client and runs each operation in its own
// goroutine, returning a channel that receives the result. Wait blocks
// until every started operation finishes.
//
// Example:
//
//	asyncClient, _ := core.NewAsyncClient(config)
//	defer asyncClient.Close()
//
//	resultChan := asyncClient.AddAsync(ctx, "User likes hiking", core.WithUserID("user_001"))
//	result := <-resultChan
//	if result.Error != nil {
//	    log.Fatal(result.Error)
//	}
type AsyncClient struct {
	*Client
	wg sync.WaitGroup
}

// NewAsyncClient creates a new asynchronous client.
func NewAsyncClient(cfg *Config, opts ...ClientOption) (*AsyncClient, error) {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &AsyncClient{Client: client}, nil
}

// MemoryResult contains the result of a single-memory operation.
type MemoryResult struct {
	// Memory is the memory returned by the operation (nil on error).
	Memory *Memory

	// Error is the operation error (nil on success).
	Error error
}

// MemoriesResult contains the result of a multi-memory operation.
type MemoriesResult struct {
	// Memories is the list of returned memories.
	Memories []*Memory

	// Error is the operation error (nil on success).
	Error error
}

// AddAsync adds a memory in a background goroutine.
func (ac *AsyncClient) AddAsync(ctx context.Context, content string, opts ...AddOption) <-chan *MemoryResult {
	resultChan := make(chan *MemoryResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		memory, err := ac.Add(ctx, content, opts...)
		resultChan <- &MemoryResult{Memory: memory, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// SearchAsync searches memories in a background goroutine.
func (ac *AsyncClient) SearchAsync(ctx context.Context, query string, opts ...SearchOption) <-chan *MemoriesResult {
	resultChan := make(chan *MemoriesResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		memories, err := ac.Search(ctx, query, opts...)
		resultChan <- &MemoriesResult{Memories: memories, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// GetAsync retrieves a memory by ID in a background goroutine.
func (ac *AsyncClient) GetAsync(ctx context.Context, id int64, opts ...GetOption) <-chan *MemoryResult {
	resultChan := make(chan *MemoryResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		memory, err := ac.Get(ctx, id, opts...)
		resultChan <- &MemoryResult{Memory: memory, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// UpdateAsync updates a memory in a background goroutine.
func (ac *AsyncClient) UpdateAsync(ctx context.Context, id int64, content string, opts ...UpdateOption) <-chan *MemoryResult {
	resultChan := make(chan *MemoryResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		memory, err := ac.Update(ctx, id, content, opts...)
		resultChan <- &MemoryResult{Memory: memory, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// DeleteAsync deletes a memory in a background goroutine.
func (ac *AsyncClient) DeleteAsync(ctx context.Context, id int64, opts ...DeleteOption) <-chan error {
	errChan := make(chan error, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		errChan <- ac.Delete(ctx, id, opts...)
		close(errChan)
	}()

	return errChan
}

// GetAllAsync lists memories in a background goroutine.
func (ac *AsyncClient) GetAllAsync(ctx context.Context, opts ...GetAllOption) <-chan *MemoriesResult {
	resultChan := make(chan *MemoriesResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		memories, err := ac.GetAll(ctx, opts...)
		resultChan <- &MemoriesResult{Memories: memories, Error: err}
		close(resultChan)
	}()

	return resultChan
}

// DeleteAllAsync deletes matching memories in a background goroutine.
func (ac *AsyncClient) DeleteAllAsync(ctx context.Context, opts ...DeleteAllOption) <-chan error {
	errChan := make(chan error, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		errChan <- ac.DeleteAll(ctx, opts...)
		close(errChan)
	}()

	return errChan
}

// Wait blocks until all started asynchronous operations complete.
func (ac *AsyncClient) Wait() {
	ac.wg.Wait()
}

// Close waits for in-flight operations and closes the underlying client.
func (ac *AsyncClient) Close() error {
	ac.Wait()
	return ac.Client.Close()
}
