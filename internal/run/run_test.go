package run

//go:generate mockgen -write_package_comment=false -package=$GOPACKAGE -destination=mock_host_test.go github.com/retroenv/retropatch/internal/run Host

import (
	"errors"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func TestParseOnHit(t *testing.T) {
	tests := []struct {
		input    string
		expected OnHit
		wantErr  bool
	}{
		{"", EndRun, false},
		{"end_run", EndRun, false},
		{"restart_new_shard", RestartNewShard, false},
		{"RESTART_SAME_SHARD", RestartSameShard, false},
		{"restart-same-shard", RestartSameShard, false},
		{"respawn", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			action, err := ParseOnHit(tt.input)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnsupportedOnHit))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, action)
		})
	}

	assert.Equal(t, "restart_new_shard", RestartNewShard.String())
	assert.Equal(t, "on_hit(7)", OnHit(7).String())
}

func TestRun_TryTrigger(t *testing.T) {
	r := New(log.NewTestLogger(t))

	assert.False(t, r.Triggered())
	assert.True(t, r.TryTrigger())
	assert.False(t, r.TryTrigger())
	assert.True(t, r.Triggered())

	r.Reset()
	assert.True(t, r.TryTrigger())
}

func TestRun_TryTriggerConcurrent(t *testing.T) {
	r := New(log.NewTestLogger(t))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryTrigger() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRun_Knockout(t *testing.T) {
	cfg := Config{Name: "story"}
	data := Data{ShardID: 3, CurrentSeed: 1234}

	t.Run("end run", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		host := NewMockHost(ctrl)
		host.EXPECT().LoseRun(false)

		r := New(log.NewTestLogger(t))
		assert.NoError(t, r.Knockout(host, EndRun))
	})

	t.Run("restart same shard", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		host := NewMockHost(ctrl)
		gomock.InOrder(
			host.EXPECT().Current().Return(cfg, data),
			host.EXPECT().ClearCurrentRun(),
			host.EXPECT().StartAndPlayNewRun(cfg, 3, 1234),
		)

		r := New(log.NewTestLogger(t))
		assert.NoError(t, r.Knockout(host, RestartSameShard))
	})

	t.Run("restart new shard", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		host := NewMockHost(ctrl)
		gomock.InOrder(
			host.EXPECT().Current().Return(cfg, data),
			host.EXPECT().GenerateSeed().Return(98765),
			host.EXPECT().ClearCurrentRun(),
			host.EXPECT().StartAndPlayNewRun(cfg, 3, 98765),
		)

		r := New(log.NewTestLogger(t))
		assert.NoError(t, r.Knockout(host, RestartNewShard))
	})

	t.Run("unknown action", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		host := NewMockHost(ctrl)

		r := New(log.NewTestLogger(t))
		err := r.Knockout(host, OnHit(9))
		assert.True(t, errors.Is(err, ErrUnsupportedOnHit))
	})
}
