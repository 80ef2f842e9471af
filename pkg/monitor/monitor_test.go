package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stxbridge/bridger/pkg/clarity"
	"github.com/stxbridge/bridger/pkg/metrics"
)

type fakeCaller struct {
	calls int32
	val   clarity.Value
	err   error
}

func (f *fakeCaller) CallReadOnly(_ context.Context, function string, _ []string) (clarity.Value, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.val, nil
}

func TestMonitor(t *testing.T) {
	t.Run("polls the counter and updates the gauge", func(t *testing.T) {
		caller := &fakeCaller{val: clarity.Response{Ok: true, Val: clarity.NewUInt(42)}}
		m := New(caller, time.Millisecond, nil)

		m.Start(context.Background())
		require.Eventually(t, func() bool {
			return atomic.LoadInt32(&caller.calls) >= 2
		}, time.Second, time.Millisecond)
		m.Stop()

		assert.Equal(t, float64(42), testutil.ToFloat64(metrics.ContractOrderCount))
	})

	t.Run("stop halts polling", func(t *testing.T) {
		caller := &fakeCaller{val: clarity.NewUInt(1)}
		m := New(caller, time.Millisecond, nil)

		m.Start(context.Background())
		m.Stop()

		settled := atomic.LoadInt32(&caller.calls)
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, settled, atomic.LoadInt32(&caller.calls))
	})

	t.Run("start and stop are idempotent", func(t *testing.T) {
		caller := &fakeCaller{val: clarity.NewUInt(1)}
		m := New(caller, time.Millisecond, nil)

		m.Start(context.Background())
		m.Start(context.Background())
		m.Stop()
		m.Stop()
	})

	t.Run("poll errors are retried on the next tick", func(t *testing.T) {
		caller := &fakeCaller{err: errors.New("indexer down")}
		m := New(caller, time.Millisecond, nil)

		m.Start(context.Background())
		require.Eventually(t, func() bool {
			return atomic.LoadInt32(&caller.calls) >= 3
		}, time.Second, time.Millisecond)
		m.Stop()
	})
}

func TestOrderCount(t *testing.T) {
	tests := []struct {
		name   string
		val    clarity.Value
		want   uint64
		wantOk bool
	}{
		{name: "bare uint", val: clarity.NewUInt(7), want: 7, wantOk: true},
		{name: "ok response", val: clarity.Response{Ok: true, Val: clarity.NewUInt(7)}, want: 7, wantOk: true},
		{name: "some optional", val: clarity.Optional{Val: clarity.NewUInt(7)}, want: 7, wantOk: true},
		{name: "err response", val: clarity.Response{Ok: false, Val: clarity.NewUInt(1)}, wantOk: false},
		{name: "none optional", val: clarity.Optional{}, wantOk: false},
		{name: "wrong type", val: clarity.StringASCII{Val: "7"}, wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := orderCount(tt.val)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
