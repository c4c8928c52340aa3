package rpc

import (
	"sync"
	"time"

	"github.com/crytic/medusa-geth/rpc"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

const maxRetries = 3

// ClientPool distributes JSON-RPC requests over a fixed set of connections to one endpoint. Identical requests which
// are in flight at the same time are only sent once.
type ClientPool struct {
	rpcClients       []*rpc.Client
	currentClientIdx int
	clientLock       sync.Mutex

	inflightRequests map[requestKey]*inflightRequest
	inflightLock     sync.Mutex

	endpoint   string
	maxRetries int
}

// NewClientPool dials poolSize connections to endpoint.
func NewClientPool(endpoint string, poolSize uint) (*ClientPool, error) {
	if poolSize == 0 {
		return nil, errors.New("client pool size must be greater than zero")
	}

	pool := &ClientPool{
		rpcClients:       make([]*rpc.Client, 0, poolSize),
		clientLock:       sync.Mutex{},
		inflightRequests: make(map[requestKey]*inflightRequest),
		inflightLock:     sync.Mutex{},
		endpoint:         endpoint,
		maxRetries:       maxRetries,
	}

	// dial out
	for i := uint(0); i < poolSize; i++ {
		client, err := rpc.Dial(endpoint)
		if err != nil {
			pool.Close()
			return nil, errors.Wrapf(err, "could not dial %s", endpoint)
		}
		pool.rpcClients = append(pool.rpcClients, client)
	}

	return pool, nil
}

// Endpoint returns the endpoint the pool is connected to.
func (c *ClientPool) Endpoint() string {
	return c.endpoint
}

// ExecuteRequestBlocking sends a request and waits for its result, which is decoded into result.
func (c *ClientPool) ExecuteRequestBlocking(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	pending, err := c.ExecuteRequestAsync(ctx, method, args...)
	if err != nil {
		return err
	}
	return pending.GetResultBlocking(result)
}

// ExecuteRequestAsync sends a request without waiting for its result. If an identical request is in flight, its
// result is shared instead.
func (c *ClientPool) ExecuteRequestAsync(ctx context.Context, method string, args ...interface{}) (*PendingResult, error) {
	key, err := makeRequestKey(method, args...)
	if err != nil {
		return nil, err
	}

	// check for in-flight requests
	c.inflightLock.Lock()
	if inflight, exists := c.inflightRequests[key]; exists {
		c.inflightLock.Unlock()
		return newPendingResult(ctx, inflight), nil
	}

	inflight := &inflightRequest{
		Done:    make(chan struct{}),
		Context: ctx,
	}
	c.inflightRequests[key] = inflight
	c.inflightLock.Unlock()

	go c.launchRequest(c.getClient(), key, inflight, method, args...)
	return newPendingResult(ctx, inflight), nil
}

func (c *ClientPool) getClient() *rpc.Client {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()

	client := c.rpcClients[c.currentClientIdx]
	c.currentClientIdx = (c.currentClientIdx + 1) % len(c.rpcClients)

	return client
}

func (c *ClientPool) launchRequest(client *rpc.Client, key requestKey, request *inflightRequest, method string, args ...interface{}) {
	defer func() {
		// Later identical requests are sent anew
		c.inflightLock.Lock()
		delete(c.inflightRequests, key)
		c.inflightLock.Unlock()
		close(request.Done)
	}()

	var err error
	var result string
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		err = client.CallContext(request.Context, &result, method, args...)
		if err == nil {
			request.Result = []byte("\"" + result + "\"")
			return
		}
		if request.Context.Err() != nil {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	request.Error = errors.Wrapf(err, "%s request to %s failed", method, c.endpoint)
}

// Close closes every connection of the pool.
func (c *ClientPool) Close() {
	c.clientLock.Lock()
	defer c.clientLock.Unlock()
	for _, client := range c.rpcClients {
		client.Close()
	}
}
