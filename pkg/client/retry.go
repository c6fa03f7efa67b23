package client

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/denisbrodbeck/machineid"
	"github.com/tansive/stately/pkg/api"
)

// AcquireLockWithRetry polls for the scope's lock with exponential backoff
// until it is acquired, the attempts are exhausted, or the context is
// canceled. Only lock contention is retried; other errors fail immediately.
func (c *Client) AcquireLockWithRetry(ctx context.Context, scopeID string, holder api.LockHolder, ttl time.Duration, attempts uint) (*api.LockResponse, error) {
	var rsp *api.LockResponse
	err := retry.Do(
		func() error {
			var err error
			rsp, err = c.AcquireLock(scopeID, holder, ttl)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsLocked),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return rsp, nil
}

// DefaultHolder builds holder metadata identifying the current user and
// machine, the way interactive tools tag their locks.
func DefaultHolder(operation string) api.LockHolder {
	who := "unknown"
	if u, err := user.Current(); err == nil {
		who = u.Username
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		if id, err := machineid.ID(); err == nil {
			host = id
		} else {
			host = "localhost"
		}
	}
	return api.LockHolder{
		Holder:    fmt.Sprintf("%s@%s", who, host),
		Operation: operation,
		Who:       who,
	}
}
