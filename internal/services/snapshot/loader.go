// Package snapshot loads a pre-exported metrics bundle once, keeps it in an
// atomically replaced cache, and tracks which organization is active.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"intakedash/internal/models"
	"intakedash/internal/services/kvstore"
	"intakedash/internal/telemetry"
)

// Snapshot file names
const (
	MetadataFile   = "metadata.json"
	BundleFile     = "dashboard-data.json"
	BundleGzipFile = "dashboard-data.json.gz"
)

// ActiveOrgKey is where the last chosen organization is persisted
const ActiveOrgKey = "intakedash.active_org"

// loadTimeout bounds a shared fetch, which outlives any single caller
const loadTimeout = 60 * time.Second

var (
	// ErrSnapshotUnavailable means neither bundle file could be fetched
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")

	// ErrMalformedSnapshot means a file was fetched but could not be decoded
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrUnknownOrganization means the organization is not in the bundle
	ErrUnknownOrganization = errors.New("unknown organization")
)

// state is one immutable generation of the cache
type state struct {
	meta   *models.SnapshotMetadata
	slices map[string]*models.OrgSlice
	order  []string
	active string
}

// Active is the active organization's view of the loaded snapshot
type Active struct {
	OrganizationID string
	Organization   models.Organization
	Slice          *models.OrgSlice
	Metadata       *models.SnapshotMetadata
}

// Loader owns the snapshot cache. Readers never lock; writers (load,
// reload, switch) replace the whole state pointer.
type Loader struct {
	fetcher Fetcher
	kv      kvstore.Store
	log     *zap.Logger

	current atomic.Pointer[state]
	group   singleflight.Group
	writeMu sync.Mutex
}

// NewLoader creates a Loader. kv may be nil, in which case the choice of
// organization is not remembered.
func NewLoader(fetcher Fetcher, kv kvstore.Store, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if kv == nil {
		kv = kvstore.NewMemory()
	}
	return &Loader{fetcher: fetcher, kv: kv, log: log}
}

// Loaded reports whether a snapshot is cached
func (l *Loader) Loaded() bool {
	return l.current.Load() != nil
}

// Load fetches the snapshot on first use; later calls return the cache.
// Concurrent first calls share one fetch.
func (l *Loader) Load(ctx context.Context) (*Active, error) {
	if st := l.current.Load(); st != nil {
		return st.view(), nil
	}
	st, err := l.fetchShared(ctx, false)
	if err != nil {
		return nil, err
	}
	return st.view(), nil
}

// Reload fetches the snapshot again. On failure the previous cache stays.
func (l *Loader) Reload(ctx context.Context) (*Active, error) {
	st, err := l.fetchShared(ctx, true)
	if err != nil {
		return nil, err
	}
	return st.view(), nil
}

// Organizations returns the roster of organizations present in the bundle
func (l *Loader) Organizations(ctx context.Context) ([]models.Organization, error) {
	if _, err := l.Load(ctx); err != nil {
		return nil, err
	}
	st := l.current.Load()
	orgs := make([]models.Organization, 0, len(st.order))
	for _, id := range st.order {
		orgs = append(orgs, st.organization(id))
	}
	return orgs, nil
}

// View returns the snapshot as seen from organization id without changing
// the active organization. An empty id means the active one.
func (l *Loader) View(ctx context.Context, id string) (*Active, error) {
	active, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" || id == active.OrganizationID {
		return active, nil
	}
	st := l.current.Load()
	if _, ok := st.slices[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrganization, id)
	}
	next := *st
	next.active = id
	return next.view(), nil
}

// SwitchOrganization makes id the active organization without refetching
// and persists the choice. A failed persist is logged; the switch stands.
func (l *Loader) SwitchOrganization(ctx context.Context, id string) (*Active, error) {
	if _, err := l.Load(ctx); err != nil {
		return nil, err
	}

	l.writeMu.Lock()
	cur := l.current.Load()
	if _, ok := cur.slices[id]; !ok {
		l.writeMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrganization, id)
	}
	next := *cur
	next.active = id
	l.current.Store(&next)
	l.writeMu.Unlock()

	telemetry.OrganizationSwitches.Inc()
	l.log.Info("Switched active organization", zap.String("org_id", id))

	if err := l.kv.Set(ctx, ActiveOrgKey, id); err != nil {
		l.log.Warn("Failed to persist active organization", zap.String("org_id", id), zap.Error(err))
	}
	return next.view(), nil
}

// fetchShared runs one fetch for all concurrent callers. Without force a
// caller arriving after a successful load returns the cache. The fetch is
// detached from the first caller's cancellation so the other waiters are
// not failed by it; each caller still stops waiting when its own ctx ends.
func (l *Loader) fetchShared(ctx context.Context, force bool) (*state, error) {
	key := "load"
	if force {
		key = "reload"
	}
	ch := l.group.DoChan(key, func() (interface{}, error) {
		if !force {
			if st := l.current.Load(); st != nil {
				return st, nil
			}
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return l.fetch(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*state), nil
	}
}

// fetch retrieves, decodes and installs a new state, or leaves the cache
// untouched on any error
func (l *Loader) fetch(ctx context.Context) (*state, error) {
	meta, err := l.fetchMetadata(ctx)
	if err != nil {
		telemetry.SnapshotFetches.WithLabelValues("error").Inc()
		return nil, err
	}

	raw, err := l.fetchBundle(ctx)
	if err != nil {
		telemetry.SnapshotFetches.WithLabelValues("error").Inc()
		return nil, err
	}

	bundle, err := decodeBundle(raw)
	if err != nil {
		telemetry.SnapshotFetches.WithLabelValues("error").Inc()
		return nil, err
	}

	slices, order := resolveSlices(bundle, meta)
	if len(order) == 0 {
		telemetry.SnapshotFetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: bundle has no organizations", ErrMalformedSnapshot)
	}

	st := &state{meta: meta, slices: slices, order: order}
	st.active = l.pickActive(ctx, st)

	// A switch may have landed while fetching; it wins if still present
	l.writeMu.Lock()
	if cur := l.current.Load(); cur != nil {
		if _, ok := slices[cur.active]; ok {
			st.active = cur.active
		}
	}
	l.current.Store(st)
	l.writeMu.Unlock()

	telemetry.SnapshotFetches.WithLabelValues("ok").Inc()
	l.log.Info("Loaded snapshot",
		zap.Int("organizations", len(order)),
		zap.String("active_org", st.active),
		zap.String("start_date", meta.DateRange.StartDate),
		zap.String("end_date", meta.DateRange.EndDate),
	)
	return st, nil
}

// fetchMetadata returns the roster; a missing metadata file yields an empty one
func (l *Loader) fetchMetadata(ctx context.Context) (*models.SnapshotMetadata, error) {
	data, err := l.fetcher.Fetch(ctx, MetadataFile)
	if errors.Is(err, ErrNotFound) {
		l.log.Warn("Snapshot has no metadata file")
		return &models.SnapshotMetadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	return decodeMetadata(data)
}

// fetchBundle prefers the gzip bundle and falls back to the plain file
func (l *Loader) fetchBundle(ctx context.Context) ([]byte, error) {
	data, gzErr := l.fetcher.Fetch(ctx, BundleGzipFile)
	if gzErr == nil {
		return data, nil
	}
	l.log.Debug("Compressed bundle not fetched, trying plain", zap.Error(gzErr))

	data, err := l.fetcher.Fetch(ctx, BundleFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, errors.Join(gzErr, err))
	}
	return data, nil
}

// pickActive returns the persisted organization when the bundle has it,
// else the first roster organization
func (l *Loader) pickActive(ctx context.Context, st *state) string {
	saved, ok, err := l.kv.Get(ctx, ActiveOrgKey)
	if err != nil {
		l.log.Warn("Failed to read persisted organization", zap.Error(err))
	}
	if ok {
		if _, present := st.slices[saved]; present {
			return saved
		}
	}
	return st.order[0]
}

func (st *state) view() *Active {
	return &Active{
		OrganizationID: st.active,
		Organization:   st.organization(st.active),
		Slice:          st.slices[st.active],
		Metadata:       st.meta,
	}
}

// organization returns the roster entry for id, or a minimal one when the
// roster does not list it
func (st *state) organization(id string) models.Organization {
	for _, o := range st.meta.Organizations {
		if o.ID == id {
			return o
		}
	}
	org := models.Organization{ID: id, Name: id}
	if slice := st.slices[id]; slice != nil {
		org.NumSuppliers = len(slice.Suppliers)
	}
	return org
}
