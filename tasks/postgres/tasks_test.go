// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	pgclient "github.com/absmach/farmgate/pkg/postgres"
	"github.com/absmach/farmgate/pkg/uuid"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/tasks/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idProvider = uuid.New()

func newTask(t *testing.T, controllerID string, created time.Time) tasks.Task {
	id, err := idProvider.ID()
	require.Nil(t, err)
	peripheral, err := idProvider.ID()
	require.Nil(t, err)
	until := created.Add(24 * time.Hour)
	return tasks.Task{
		ID:           id,
		ControllerID: controllerID,
		Type:         tasks.PollSensor,
		State:        tasks.Starting,
		Params:       map[string]interface{}{"peripheral": peripheral, "interval": float64(15)},
		RunUntil:     &until,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func cleanup(t *testing.T) {
	_, err := db.Exec("DELETE FROM tasks")
	require.Nil(t, err, fmt.Sprintf("clean tasks unexpected error: %s", err))
}

func TestSave(t *testing.T) {
	t.Cleanup(func() { cleanup(t) })
	repo := postgres.NewRepository(database)

	controllerID, err := idProvider.ID()
	require.Nil(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	task := newTask(t, controllerID, now)

	cases := []struct {
		desc string
		task tasks.Task
		err  error
	}{
		{desc: "save new task", task: task},
		{desc: "save task with duplicate id", task: task, err: repoerr.ErrConflict},
		{
			desc: "save task without params",
			task: func() tasks.Task {
				t2 := newTask(t, controllerID, now)
				t2.Params = nil
				t2.RunUntil = nil
				return t2
			}(),
		},
	}

	for _, tc := range cases {
		saved, err := repo.Save(context.Background(), tc.task)
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
		if tc.err != nil {
			continue
		}
		assert.Equal(t, tc.task.ID, saved.ID, tc.desc)
		assert.Equal(t, tc.task.State, saved.State, tc.desc)
		assert.Equal(t, len(tc.task.Params), len(saved.Params), tc.desc)
	}
}

func TestRetrieveByID(t *testing.T) {
	t.Cleanup(func() { cleanup(t) })
	repo := postgres.NewRepository(database)

	controllerID, err := idProvider.ID()
	require.Nil(t, err)
	task := newTask(t, controllerID, time.Now().UTC().Truncate(time.Microsecond))
	_, err = repo.Save(context.Background(), task)
	require.Nil(t, err)

	got, err := repo.RetrieveByID(context.Background(), task.ID)
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	assert.Equal(t, task, got)

	missing, err := idProvider.ID()
	require.Nil(t, err)
	_, err = repo.RetrieveByID(context.Background(), missing)
	assert.True(t, errors.Contains(err, repoerr.ErrNotFound), fmt.Sprintf("expected not found got %s", err))
}

func TestRetrieveAll(t *testing.T) {
	t.Cleanup(func() { cleanup(t) })
	repo := postgres.NewRepository(database)

	controllerID, err := idProvider.ID()
	require.Nil(t, err)
	base := time.Now().UTC().Truncate(time.Microsecond)
	var saved []tasks.Task
	for i := 0; i < 10; i++ {
		task := newTask(t, controllerID, base.Add(time.Duration(i)*time.Second))
		if i%2 == 1 {
			task.State = tasks.Running
		}
		_, err := repo.Save(context.Background(), task)
		require.Nil(t, err)
		saved = append(saved, task)
	}

	cases := []struct {
		desc  string
		pm    tasks.PageMetadata
		total uint64
		ids   []string
	}{
		{
			desc:  "first page",
			pm:    tasks.PageMetadata{ControllerID: controllerID, Limit: 3},
			total: 10,
			ids:   []string{saved[0].ID, saved[1].ID, saved[2].ID},
		},
		{
			desc:  "offset page",
			pm:    tasks.PageMetadata{ControllerID: controllerID, Offset: 8, Limit: 5},
			total: 10,
			ids:   []string{saved[8].ID, saved[9].ID},
		},
		{
			desc:  "running tasks",
			pm:    tasks.PageMetadata{ControllerID: controllerID, State: tasks.Running, Limit: 2},
			total: 5,
			ids:   []string{saved[1].ID, saved[3].ID},
		},
		{
			desc:  "unknown controller",
			pm:    tasks.PageMetadata{ControllerID: uuid.Prefix + "000000000000", Limit: 10},
			total: 0,
		},
	}

	for _, tc := range cases {
		page, err := repo.RetrieveAll(context.Background(), tc.pm)
		require.Nil(t, err, fmt.Sprintf("%s: unexpected error: %s", tc.desc, err))
		assert.Equal(t, tc.total, page.Total, tc.desc)
		var ids []string
		for _, task := range page.Tasks {
			ids = append(ids, task.ID)
		}
		assert.Equal(t, tc.ids, ids, tc.desc)
	}
}

func TestUpdate(t *testing.T) {
	t.Cleanup(func() { cleanup(t) })
	repo := postgres.NewRepository(database)
	ctx := context.Background()

	controllerID, err := idProvider.ID()
	require.Nil(t, err)
	base := time.Now().UTC().Truncate(time.Microsecond)
	first := newTask(t, controllerID, base)
	second := newTask(t, controllerID, base.Add(time.Second))
	for _, task := range []tasks.Task{second, first} {
		_, err := repo.Save(ctx, task)
		require.Nil(t, err)
	}

	var locked []string
	err = repo.Update(ctx, tasks.Query{ControllerID: controllerID, States: tasks.RestartStates}, func(ts []tasks.Task) ([]tasks.Task, error) {
		for _, task := range ts {
			locked = append(locked, task.ID)
		}
		ts[0].State = tasks.Running
		ts[0].UpdatedAt = base.Add(time.Minute)
		return ts[:1], nil
	})
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	assert.Equal(t, []string{first.ID, second.ID}, locked, "locked tasks must be ordered by creation")

	got, err := repo.RetrieveByID(ctx, first.ID)
	require.Nil(t, err)
	assert.Equal(t, tasks.Running, got.State)
	assert.Equal(t, base.Add(time.Minute), got.UpdatedAt)

	errAbort := errors.New("abort")
	err = repo.Update(ctx, tasks.Query{IDs: []string{first.ID, second.ID}}, func(ts []tasks.Task) ([]tasks.Task, error) {
		for i := range ts {
			ts[i].State = tasks.Failed
		}
		return ts, errAbort
	})
	assert.True(t, errors.Contains(err, errAbort), fmt.Sprintf("expected %s got %s", errAbort, err))
	for _, id := range []string{first.ID, second.ID} {
		got, err := repo.RetrieveByID(ctx, id)
		require.Nil(t, err)
		assert.NotEqual(t, tasks.Failed, got.State, "aborted update must not persist")
	}

	err = repo.Update(ctx, tasks.Query{ControllerID: controllerID, States: []tasks.State{tasks.Stopped}}, func(ts []tasks.Task) ([]tasks.Task, error) {
		assert.Empty(t, ts)
		return nil, nil
	})
	assert.Nil(t, err)
}

func TestUpdateInTransaction(t *testing.T) {
	t.Cleanup(func() { cleanup(t) })
	repo := postgres.NewRepository(database)
	tx := pgclient.NewTransactor(database)
	ctx := context.Background()

	controllerID, err := idProvider.ID()
	require.Nil(t, err)
	base := time.Now().UTC().Truncate(time.Microsecond)
	first := newTask(t, controllerID, base)
	second := newTask(t, controllerID, base.Add(time.Second))
	for _, task := range []tasks.Task{first, second} {
		_, err := repo.Save(ctx, task)
		require.Nil(t, err)
	}

	setState := func(ctx context.Context, id string, state tasks.State, fail error) error {
		return repo.Update(ctx, tasks.Query{IDs: []string{id}}, func(ts []tasks.Task) ([]tasks.Task, error) {
			ts[0].State = state
			return ts, fail
		})
	}

	errAbort := errors.New("abort")
	err = tx.Transact(ctx, func(ctx context.Context) error {
		if err := setState(ctx, first.ID, tasks.Running, nil); err != nil {
			return err
		}
		return setState(ctx, second.ID, tasks.Running, errAbort)
	})
	assert.True(t, errors.Contains(err, errAbort), fmt.Sprintf("expected %s got %s", errAbort, err))
	for _, id := range []string{first.ID, second.ID} {
		got, err := repo.RetrieveByID(ctx, id)
		require.Nil(t, err)
		assert.Equal(t, tasks.Starting, got.State, "updates of a failed unit of work must roll back together")
	}

	err = tx.Transact(ctx, func(ctx context.Context) error {
		if err := setState(ctx, first.ID, tasks.Running, nil); err != nil {
			return err
		}
		return setState(ctx, second.ID, tasks.Stopping, nil)
	})
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	got, err := repo.RetrieveByID(ctx, first.ID)
	require.Nil(t, err)
	assert.Equal(t, tasks.Running, got.State)
	got, err = repo.RetrieveByID(ctx, second.ID)
	require.Nil(t, err)
	assert.Equal(t, tasks.Stopping, got.State)
}

func TestUpdateSerializes(t *testing.T) {
	t.Cleanup(func() { cleanup(t) })
	repo := postgres.NewRepository(database)
	ctx := context.Background()

	controllerID, err := idProvider.ID()
	require.Nil(t, err)
	task := newTask(t, controllerID, time.Now().UTC().Truncate(time.Microsecond))
	_, err = repo.Save(ctx, task)
	require.Nil(t, err)

	const workers = 5
	var wg sync.WaitGroup
	var mu sync.Mutex
	flips := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Update(ctx, tasks.Query{IDs: []string{task.ID}, States: []tasks.State{tasks.Starting}}, func(ts []tasks.Task) ([]tasks.Task, error) {
				if len(ts) == 0 {
					return nil, nil
				}
				mu.Lock()
				flips++
				mu.Unlock()
				ts[0].State = tasks.Running
				return ts, nil
			})
			assert.Nil(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, flips, "only one concurrent update may observe the starting task")
}
