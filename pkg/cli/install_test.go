package cli

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

func TestParseModIDs(t *testing.T) {
	ids, err := parseModIDs([]string{"42", "7"})
	gt.NoError(t, err)
	gt.Value(t, ids).Equal([]model.ModID{42, 7})

	_, err = parseModIDs(nil)
	gt.Error(t, err)

	_, err = parseModIDs([]string{"42", "nope"})
	gt.Error(t, err)
}

func TestInstallAll_ContinuesAfterFailure(t *testing.T) {
	var calls atomic.Int32
	install := func(ctx context.Context, id model.ModID) (*model.InstallResult, error) {
		calls.Add(1)
		if id == 2 {
			return &model.InstallResult{ModID: id, State: model.StateFailed}, errors.New("boom")
		}
		return &model.InstallResult{ModID: id, State: model.StateCompleted}, nil
	}

	err := installAll(context.Background(), []model.ModID{1, 2, 3}, 2, install)
	gt.Error(t, err)
	gt.Value(t, calls.Load()).Equal(int32(3))
}

func TestInstallAll_RespectsParallelLimit(t *testing.T) {
	var running, peak atomic.Int32
	install := func(ctx context.Context, id model.ModID) (*model.InstallResult, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		return &model.InstallResult{ModID: id, State: model.StateCompleted}, nil
	}

	gt.NoError(t, installAll(context.Background(), []model.ModID{1, 2, 3, 4, 5}, 1, install))
	gt.Value(t, peak.Load()).Equal(int32(1))
}
