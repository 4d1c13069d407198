package postprocess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/quatton/qseq/pkg/kv"
	"github.com/quatton/qseq/pkg/pacbio/rundata"
	"github.com/quatton/qseq/pkg/pacbio/runfiles"
	"github.com/quatton/qseq/pkg/qlog"
)

// Claimer makes sure only one worker processes a run at a time. An error
// wrapping ErrClaimed means another worker holds the run. release must be
// called once the run is finished, whatever the outcome.
type Claimer interface {
	Claim(ctx context.Context, run rundata.RunData) (release func(), err error)
}

// DefaultClaimTTL bounds how long a crashed worker can block a run.
const DefaultClaimTTL = 6 * time.Hour

// newOwner names a claimer: host plus a per-process id.
func newOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return host + "/" + uuid.NewString()
}

// FileClaimer claims a run by creating a lock file in its cell directory.
// A lock older than the TTL was left by a worker that died and is taken over.
type FileClaimer struct {
	ttl    time.Duration
	owner  string
	now    func() time.Time
	logger *qlog.Logger
}

type lockInfo struct {
	Owner     string    `json:"owner"`
	ClaimedAt time.Time `json:"claimed_at"`
}

func NewFileClaimer(ttl time.Duration, logger *qlog.Logger) *FileClaimer {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &FileClaimer{
		ttl:    ttl,
		owner:  newOwner(),
		now:    time.Now,
		logger: qlog.OrDefault(logger),
	}
}

func (c *FileClaimer) Claim(_ context.Context, run rundata.RunData) (func(), error) {
	lock := runfiles.ProcessingLockPath(run)
	created, err := c.create(lock)
	if err != nil {
		return nil, err
	}
	if !created {
		if err := c.takeOverStale(run, lock); err != nil {
			return nil, err
		}
		created, err = c.create(lock)
		if err != nil {
			return nil, err
		}
		if !created {
			return nil, fmt.Errorf("%w: lock %s was recreated during takeover", ErrClaimed, lock)
		}
	}

	return func() {
		info, err := readLock(lock)
		if err != nil || info.Owner != c.owner {
			c.logger.Warn("processing lock no longer ours, leaving it", "run", run.Name(), "owner", info.Owner)
			return
		}
		if err := os.Remove(lock); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("failed to remove processing lock", "run", run.Name(), "error", err)
		}
	}, nil
}

func (c *FileClaimer) create(lock string) (bool, error) {
	content, err := json.Marshal(lockInfo{Owner: c.owner, ClaimedAt: c.now().UTC()})
	if err != nil {
		return false, err
	}
	return runfiles.WriteMarker(lock, content)
}

// takeOverStale removes lock when it is older than the TTL and returns an
// ErrClaimed error naming the holder otherwise. The lock is renamed aside
// before it is removed so that a lock recreated by a faster worker in the
// meantime is put back instead of deleted.
func (c *FileClaimer) takeOverStale(run rundata.RunData, lock string) error {
	held, err := readLock(lock)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read processing lock: %w", err)
	}
	age := c.now().Sub(held.ClaimedAt)
	if age < c.ttl {
		return fmt.Errorf("%w: held by %s since %s", ErrClaimed, held.describe(), held.ClaimedAt.Format(time.RFC3339))
	}

	aside := lock + ".stale." + uuid.NewString()
	if err := os.Rename(lock, aside); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("move stale processing lock: %w", err)
	}
	moved, err := readLock(aside)
	if err == nil && (moved.Owner != held.Owner || !moved.ClaimedAt.Equal(held.ClaimedAt)) {
		// not the lock we judged stale
		if linkErr := os.Link(aside, lock); linkErr != nil {
			c.logger.Warn("failed to restore processing lock", "run", run.Name(), "error", linkErr)
		}
		os.Remove(aside)
		return fmt.Errorf("%w: held by %s", ErrClaimed, moved.describe())
	}
	if err := os.Remove(aside); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale processing lock: %w", err)
	}
	c.logger.Warn("took over stale processing lock", "run", run.Name(), "owner", held.describe(), "age", age.Round(time.Second))
	return nil
}

// readLock falls back to the file's modification time for locks without a
// readable body.
func readLock(path string) (lockInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return lockInfo{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return lockInfo{}, err
	}
	var info lockInfo
	if json.Unmarshal(data, &info) != nil || info.ClaimedAt.IsZero() {
		info = lockInfo{Owner: info.Owner, ClaimedAt: st.ModTime()}
	}
	return info, nil
}

func (l lockInfo) describe() string {
	if l.Owner == "" {
		return "an unknown worker"
	}
	return l.Owner
}

// KVClaimer claims runs in a shared key-value store so workers on several
// hosts can split one batch.
type KVClaimer struct {
	store  kv.Store
	ttl    time.Duration
	owner  []byte
	logger *qlog.Logger
}

func NewKVClaimer(store kv.Store, ttl time.Duration, logger *qlog.Logger) *KVClaimer {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &KVClaimer{
		store:  store,
		ttl:    ttl,
		owner:  []byte(newOwner()),
		logger: qlog.OrDefault(logger),
	}
}

func claimKey(run rundata.RunData) string {
	return "qseq:claim:" + run.Name()
}

func (c *KVClaimer) Claim(ctx context.Context, run rundata.RunData) (func(), error) {
	key := claimKey(run)
	ok, err := c.store.SetNX(ctx, key, c.owner, c.ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		holder, err := c.store.Get(ctx, key)
		switch {
		case errors.Is(err, kv.ErrNotFound):
			return nil, fmt.Errorf("%w: claim %s expired while checking it", ErrClaimed, key)
		case err != nil:
			return nil, fmt.Errorf("%w: holder of %s unknown: %v", ErrClaimed, key, err)
		}
		return nil, fmt.Errorf("%w: held by %s", ErrClaimed, holder)
	}

	return func() {
		// the run's context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := c.store.DeleteIfEqual(ctx, key, c.owner); err != nil {
			c.logger.Warn("failed to release claim", "run", run.Name(), "error", err)
		}
	}, nil
}
