package freshness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/directory/inmemory"
	storemocks "github.com/campuslink/campuslink-server/internal/directory/mocks"
	"github.com/campuslink/campuslink-server/internal/events"
	"github.com/campuslink/campuslink-server/internal/httpclient"
	"github.com/campuslink/campuslink-server/internal/otel"
	"github.com/campuslink/campuslink-server/internal/places"
	placesmocks "github.com/campuslink/campuslink-server/internal/places/mocks"
	"github.com/campuslink/campuslink-server/internal/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ptr[T any](v T) *T { return &v }

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func record(ref *string, isOpen bool, checked *time.Time) *directory.ServiceRecord {
	return &directory.ServiceRecord{
		ID:                uuid.NewString(),
		Name:              "Campus Canteen",
		Category:          "Food",
		Location:          directory.Location{Lat: 22.5576984, Lng: 88.3939082},
		ExternalRef:       ref,
		IsOpen:            isOpen,
		StatusLastChecked: checked,
	}
}

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.StatusChanged
	err    error
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, e events.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (*recordingPublisher) Close() error { return nil }

// stalledPublisher behaves like an unreachable broker
type stalledPublisher struct {
	mu       sync.Mutex
	deadline bool
}

func (p *stalledPublisher) PublishStatusChanged(ctx context.Context, _ events.StatusChanged) error {
	_, hasDeadline := ctx.Deadline()
	p.mu.Lock()
	p.deadline = hasDeadline
	p.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (*stalledPublisher) Close() error { return nil }

func newSynchronizer(
	t *testing.T,
	store directory.Store,
	source places.StatusSource,
	opts ...Option,
) *Synchronizer {
	t.Helper()
	s, err := New(store, source, append([]Option{WithClock(fixedClock)}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := storemocks.NewMockStore(ctrl)

	tests := []struct {
		name    string
		store   directory.Store
		opts    []Option
		wantErr string
	}{
		{name: "nil store", wantErr: "directory store is required"},
		{name: "zero ttl", store: store, opts: []Option{WithTTL(0)}, wantErr: "ttl must be positive"},
		{name: "negative timeout", store: store, opts: []Option{WithFetchTimeout(-time.Second)}, wantErr: "fetch timeout"},
		{name: "nil clock", store: store, opts: []Option{WithClock(nil)}, wantErr: "clock cannot be nil"},
		{name: "defaults", store: store},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := New(tt.store, nil, tt.opts...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultTTL, s.TTL())
			assert.Equal(t, DefaultFetchTimeout, s.fetchTimeout)
		})
	}
}

func TestSyncDisabled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := newSynchronizer(t, storemocks.NewMockStore(ctrl), nil)

	rec := record(ptr("X1"), false, nil)
	got, outcome := s.Sync(context.Background(), rec)

	assert.Equal(t, OutcomeDisabled, outcome)
	assert.Same(t, rec, got)
}

func TestSyncNoExternalRef(t *testing.T) {
	t.Parallel()

	for _, ref := range []*string{nil, ptr(""), ptr("  ")} {
		ctrl := gomock.NewController(t)
		source := placesmocks.NewMockStatusSource(ctrl)
		store := storemocks.NewMockStore(ctrl)
		s := newSynchronizer(t, store, source)

		rec := record(ref, true, ago(time.Hour))
		before := rec.Clone()

		got, outcome := s.Sync(context.Background(), rec)

		assert.Equal(t, OutcomeNotSynchronizable, outcome)
		assert.Empty(t, cmp.Diff(before, got))
	}
}

func TestSyncFreshnessWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		checked   *time.Time
		wantFetch bool
	}{
		{name: "checked just now", checked: ago(0)},
		{name: "checked five minutes ago", checked: ago(5 * time.Minute)},
		{name: "one nanosecond inside ttl", checked: ago(DefaultTTL - time.Nanosecond)},
		{name: "exactly at ttl is stale", checked: ago(DefaultTTL), wantFetch: true},
		{name: "past ttl", checked: ago(DefaultTTL + time.Second), wantFetch: true},
		{name: "never checked", checked: nil, wantFetch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			source := placesmocks.NewMockStatusSource(ctrl)
			store := storemocks.NewMockStore(ctrl)
			if tt.wantFetch {
				source.EXPECT().FetchOpenStatus(gomock.Any(), "X1").Return(true, nil)
				store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(&directory.ServiceRecord{}, nil)
			}
			s := newSynchronizer(t, store, source)

			_, outcome := s.Sync(context.Background(), record(ptr("X1"), true, tt.checked))

			if tt.wantFetch {
				assert.Equal(t, OutcomeRefreshed, outcome)
			} else {
				assert.Equal(t, OutcomeFresh, outcome)
			}
		})
	}
}

func TestSyncRefreshesStaleRecord(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := placesmocks.NewMockStatusSource(ctrl)
	store := storemocks.NewMockStore(ctrl)

	rec := record(ptr("X1"), false, ago(20*time.Minute))
	before := rec.Clone()
	updated := now.Add(time.Second)

	source.EXPECT().FetchOpenStatus(gomock.Any(), "X1").Return(true, nil)
	store.EXPECT().
		Save(gomock.Any(), rec.ID, directory.Update{IsOpen: ptr(true), StatusLastChecked: ptr(now)}).
		Return(&directory.ServiceRecord{UpdatedAt: updated}, nil)

	s := newSynchronizer(t, store, source)
	got, outcome := s.Sync(context.Background(), rec)

	require.Equal(t, OutcomeRefreshed, outcome)
	assert.True(t, got.IsOpen)
	require.NotNil(t, got.StatusLastChecked)
	assert.True(t, now.Equal(*got.StatusLastChecked))
	assert.Equal(t, updated, got.UpdatedAt)

	assert.Empty(t, cmp.Diff(before, rec), "input record must not change")

	want := before.Clone()
	want.IsOpen = true
	want.StatusLastChecked = ptr(now)
	want.UpdatedAt = updated
	assert.Empty(t, cmp.Diff(want, got))
}

func TestSyncClosedResetsTTL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := placesmocks.NewMockStatusSource(ctrl)
	store := storemocks.NewMockStore(ctrl)

	source.EXPECT().FetchOpenStatus(gomock.Any(), "X1").Return(false, nil)
	store.EXPECT().
		Save(gomock.Any(), gomock.Any(), directory.Update{IsOpen: ptr(false), StatusLastChecked: ptr(now)}).
		Return(nil, nil)

	s := newSynchronizer(t, store, source)
	got, outcome := s.Sync(context.Background(), record(ptr("X1"), true, ago(time.Hour)))

	require.Equal(t, OutcomeRefreshed, outcome)
	assert.False(t, got.IsOpen)
	assert.True(t, s.IsFresh(got, now))
}

func TestSyncFailuresLeaveRecordUntouched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		outcome Outcome
	}{
		{name: "indeterminate", err: places.ErrStatusUnknown, outcome: OutcomeIndeterminate},
		{name: "wrapped indeterminate", err: errors.Join(errors.New("details"), places.ErrStatusUnknown), outcome: OutcomeIndeterminate},
		{name: "quota", err: &places.APIError{Operation: "details", Status: places.StatusOverQueryLimit}, outcome: OutcomeFailed},
		{name: "upstream 503", err: httpclient.NewHTTPError(503, "https://maps.example/details?key=k", "Service Unavailable"), outcome: OutcomeFailed},
		{name: "timeout", err: context.DeadlineExceeded, outcome: OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			source := placesmocks.NewMockStatusSource(ctrl)
			// No Save expectation: gomock fails the test if the store is written.
			store := storemocks.NewMockStore(ctrl)
			source.EXPECT().FetchOpenStatus(gomock.Any(), "X2").Return(false, tt.err)

			rec := record(ptr("X2"), true, ago(time.Hour))
			before := rec.Clone()

			s := newSynchronizer(t, store, source)
			got, outcome := s.Sync(context.Background(), rec)

			assert.Equal(t, tt.outcome, outcome)
			assert.Empty(t, cmp.Diff(before, got))
			assert.Empty(t, cmp.Diff(before, rec))
		})
	}
}

func TestSyncPersistFailureReturnsRefreshedCopy(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := placesmocks.NewMockStatusSource(ctrl)
	store := storemocks.NewMockStore(ctrl)
	publisher := &recordingPublisher{}

	source.EXPECT().FetchOpenStatus(gomock.Any(), "X1").Return(true, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	rec := record(ptr("X1"), false, nil)
	s := newSynchronizer(t, store, source, WithPublisher(publisher))
	got, outcome := s.Sync(context.Background(), rec)

	assert.Equal(t, OutcomePersistFailed, outcome)
	assert.True(t, got.IsOpen)
	assert.False(t, rec.IsOpen)
	assert.Empty(t, publisher.events, "no event for an unsaved change")
}

func TestSyncScenarioTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := placesmocks.NewMockStatusSource(ctrl)
	store := storemocks.NewMockStore(ctrl)

	source.EXPECT().FetchOpenStatus(gomock.Any(), "X3").DoAndReturn(
		func(ctx context.Context, _ string) (bool, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			<-ctx.Done()
			return false, ctx.Err()
		})

	rec := record(ptr("X3"), false, nil)
	before := rec.Clone()

	s := newSynchronizer(t, store, source, WithFetchTimeout(20*time.Millisecond))
	got, outcome := s.Sync(context.Background(), rec)

	assert.Equal(t, OutcomeFailed, outcome)
	assert.Empty(t, cmp.Diff(before, got))
	assert.Nil(t, got.StatusLastChecked)
}

func TestSyncIdempotentWithinTick(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := placesmocks.NewMockStatusSource(ctrl)
	source.EXPECT().FetchOpenStatus(gomock.Any(), "X1").Return(true, nil).Times(1)

	store := inmemory.New(inmemory.WithClock(fixedClock))
	rec := record(ptr("X1"), false, ago(20*time.Minute))
	_, err := store.Seed(context.Background(), []*directory.ServiceRecord{rec})
	require.NoError(t, err)

	s := newSynchronizer(t, store, source)
	ctx := context.Background()

	first, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	_, outcome := s.Sync(ctx, first)
	require.Equal(t, OutcomeRefreshed, outcome)

	second, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, second.IsOpen)
	got, outcome := s.Sync(ctx, second)

	assert.Equal(t, OutcomeFresh, outcome)
	assert.True(t, got.IsOpen)
}

func TestSyncPublishesStatusChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		previous  bool
		fetched   bool
		wantEvent bool
	}{
		{name: "opened", previous: false, fetched: true, wantEvent: true},
		{name: "closed", previous: true, fetched: false, wantEvent: true},
		{name: "unchanged", previous: true, fetched: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			source := placesmocks.NewMockStatusSource(ctrl)
			store := storemocks.NewMockStore(ctrl)
			source.EXPECT().FetchOpenStatus(gomock.Any(), gomock.Any()).Return(tt.fetched, nil)
			store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

			publisher := &recordingPublisher{err: errors.New("broker down")}
			s := newSynchronizer(t, store, source, WithPublisher(publisher))

			rec := record(ptr("X1"), tt.previous, nil)
			_, outcome := s.Sync(context.Background(), rec)
			assert.Equal(t, OutcomeRefreshed, outcome, "publish errors are swallowed")

			if !tt.wantEvent {
				assert.Empty(t, publisher.events)
				return
			}
			require.Len(t, publisher.events, 1)
			assert.Equal(t, events.StatusChanged{
				ServiceID: rec.ID,
				Name:      rec.Name,
				Previous:  tt.previous,
				IsOpen:    tt.fetched,
				CheckedAt: now,
			}, publisher.events[0])
		})
	}
}

func TestSyncPublishBoundedByFetchTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	source := placesmocks.NewMockStatusSource(ctrl)
	store := storemocks.NewMockStore(ctrl)
	source.EXPECT().FetchOpenStatus(gomock.Any(), "X1").Return(true, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	publisher := &stalledPublisher{}
	s := newSynchronizer(t, store, source,
		WithPublisher(publisher), WithFetchTimeout(30*time.Millisecond))

	started := time.Now()
	got, outcome := s.Sync(context.Background(), record(ptr("X1"), false, nil))

	assert.Equal(t, OutcomeRefreshed, outcome)
	assert.True(t, got.IsOpen)
	assert.Less(t, time.Since(started), 2*time.Second)
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.True(t, publisher.deadline)
}

func TestSyncRecordsTelemetry(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = meterProvider.Shutdown(context.Background()) })
	metrics, err := telemetry.NewFreshnessMetrics(meterProvider)
	require.NoError(t, err)

	exporter := tracetest.NewInMemoryExporter()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tracerProvider.Shutdown(context.Background()) })

	ctrl := gomock.NewController(t)
	source := placesmocks.NewMockStatusSource(ctrl)
	store := storemocks.NewMockStore(ctrl)
	source.EXPECT().FetchOpenStatus(gomock.Any(), "X1").Return(true, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	s := newSynchronizer(t, store, source,
		WithMetrics(metrics),
		WithTracer(tracerProvider.Tracer(TracerName)))

	ctx := context.Background()
	s.Sync(ctx, record(ptr("X1"), false, nil))
	s.Sync(ctx, record(ptr("X1"), false, ago(time.Minute)))
	s.Sync(ctx, record(nil, false, nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	var fetches uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					v, _ := dp.Attributes.Value(attribute.Key("outcome"))
					counts[v.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					fetches += dp.Count
				}
			}
		}
	}
	assert.Equal(t, map[string]int64{"refreshed": 1, "fresh": 1, "not_synchronizable": 1}, counts)
	assert.Equal(t, uint64(1), fetches)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	outcomes := make([]string, 0, len(spans))
	for _, span := range spans {
		assert.Equal(t, "freshness.Sync", span.Name)
		for _, kv := range span.Attributes {
			if kv.Key == otel.AttrSyncOutcome {
				outcomes = append(outcomes, kv.Value.AsString())
			}
		}
	}
	assert.ElementsMatch(t, []string{"refreshed", "fresh", "not_synchronizable"}, outcomes)
}

func TestSyncNilRecord(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	s := newSynchronizer(t, storemocks.NewMockStore(ctrl), placesmocks.NewMockStatusSource(ctrl))

	got, outcome := s.Sync(context.Background(), nil)
	assert.Nil(t, got)
	assert.Equal(t, OutcomeNotSynchronizable, outcome)
}
