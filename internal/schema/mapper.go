package schema

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ProbeFunc issues a minimal existence probe for one column: typically a
// single-row select restricted to that column. A nil return confirms the
// column exists; any error means the candidate is not usable.
type ProbeFunc func(ctx context.Context, table Table, column string) error

// fieldProbe lists the candidate physical names for one ambiguous field, in
// preference order. Fields with a single spelling are not probed.
type fieldProbe struct {
	table      Table
	field      string
	candidates []string
}

// probes covers the spellings observed across historical deployments.
var probes = []fieldProbe{
	{TableUsers, "createdAt", []string{"createdat", "created_at"}},
	{TableUsers, "updatedAt", []string{"updatedat", "updated_at"}},
	{TableGroups, "createdBy", []string{"createdby", "created_by"}},
	{TableGroups, "createdAt", []string{"createdat", "created_at"}},
	{TableExpenses, "groupId", []string{"groupid", "group_id"}},
	{TableExpenses, "paidBy", []string{"paidby", "paid_by"}},
}

// Mapper resolves the remote column mapping once per process lifetime.
// Concurrent callers overlapping a discovery wait for the same in-flight
// probe pass rather than starting their own.
type Mapper struct {
	probe  ProbeFunc
	logger *slog.Logger

	mu       sync.Mutex
	resolved Mapping
	checked  bool
	inflight chan struct{}
}

// NewMapper creates a mapper probing through fn. A nil logger falls back to
// slog.Default.
func NewMapper(fn ProbeFunc, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{probe: fn, logger: logger}
}

// Resolve returns the schema mapping, running live discovery on first use.
// Probe failures are non-fatal: unconfirmed fields keep their default
// spelling. Once discovery completes the result is permanent for the process
// and Resolve returns instantly. A discovery pass aborted by context
// cancellation returns defaults without memoizing, so a later call retries.
func (m *Mapper) Resolve(ctx context.Context) Mapping {
	m.mu.Lock()
	if m.checked {
		mp := m.resolved
		m.mu.Unlock()
		return mp
	}
	if m.inflight != nil {
		done := m.inflight
		m.mu.Unlock()
		<-done
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.checked {
			return m.resolved
		}
		// First caller was cancelled before finishing; fall back to defaults.
		return Default()
	}
	done := make(chan struct{})
	m.inflight = done
	m.mu.Unlock()

	mp, complete := m.discover(ctx)

	m.mu.Lock()
	if complete {
		m.resolved = mp
		m.checked = true
	}
	m.inflight = nil
	m.mu.Unlock()
	close(done)
	return mp
}

// Checked reports whether discovery has completed for this process.
func (m *Mapper) Checked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checked
}

// discover probes every ambiguous field sequentially. The first candidate
// that probes clean wins and overwrites the default entry; remaining
// candidates for that field are skipped.
func (m *Mapper) discover(ctx context.Context) (Mapping, bool) {
	mp := Default()
	if m.probe == nil {
		return mp, true
	}

	m.logger.Debug("detecting remote schema")
	for _, fp := range probes {
		for _, candidate := range fp.candidates {
			err := m.probe(ctx, fp.table, candidate)
			if err == nil {
				mp[fp.table][fp.field] = candidate
				m.logger.Debug("schema column detected",
					"table", fp.table, "field", fp.field, "column", candidate)
				break
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				m.logger.Warn("schema detection aborted", "error", err)
				return mp, false
			}
			// Column missing or probe failed; try the next spelling.
		}
	}
	m.logger.Info("remote schema detection complete")
	return mp, true
}
