// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/peripherals/postgres"
	"github.com/absmach/farmgate/pkg/errors"
	repoerr "github.com/absmach/farmgate/pkg/errors/repository"
	"github.com/absmach/farmgate/pkg/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idProvider = uuid.New()

func newPeripheral(t *testing.T, controllerID string, created time.Time) peripherals.Peripheral {
	id, err := idProvider.ID()
	require.Nil(t, err)
	temp, err := idProvider.ID()
	require.Nil(t, err)
	hum, err := idProvider.ID()
	require.Nil(t, err)
	return peripherals.Peripheral{
		ID:           id,
		ControllerID: controllerID,
		Type:         peripherals.BME280,
		State:        peripherals.Adding,
		DataPointTypes: []peripherals.Binding{
			{Key: "temperature", DataPointTypeID: temp},
			{Key: "humidity", DataPointTypeID: hum},
		},
		Extras:    map[string]interface{}{"address": "0x76"},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func cleanup(t *testing.T) {
	_, err := db.Exec("DELETE FROM peripherals")
	require.Nil(t, err, fmt.Sprintf("clean peripherals unexpected error: %s", err))
}

func TestSave(t *testing.T) {
	t.Cleanup(func() { cleanup(t) })
	repo := postgres.NewRepository(database)

	controllerID, err := idProvider.ID()
	require.Nil(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := newPeripheral(t, controllerID, now)

	cases := []struct {
		desc       string
		peripheral peripherals.Peripheral
		err        error
	}{
		{desc: "save new peripheral", peripheral: p},
		{desc: "save peripheral with duplicate id", peripheral: p, err: repoerr.ErrConflict},
		{
			desc: "save peripheral without extras",
			peripheral: func() peripherals.Peripheral {
				p2 := newPeripheral(t, controllerID, now)
				p2.Extras = nil
				return p2
			}(),
		},
	}

	for _, tc := range cases {
		saved, err := repo.Save(context.Background(), tc.peripheral)
		assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
		if tc.err != nil {
			continue
		}
		assert.Equal(t, tc.peripheral, saved, tc.desc)
	}
}

func TestRetrieveByID(t *testing.T) {
	t.Cleanup(func() { cleanup(t) })
	repo := postgres.NewRepository(database)

	controllerID, err := idProvider.ID()
	require.Nil(t, err)
	p := newPeripheral(t, controllerID, time.Now().UTC().Truncate(time.Microsecond))
	_, err = repo.Save(context.Background(), p)
	require.Nil(t, err)

	got, err := repo.RetrieveByID(context.Background(), p.ID)
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	assert.Equal(t, p, got)

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
	other, err := idProvider.ID()
	require.Nil(t, err)
	base := time.Now().UTC().Truncate(time.Microsecond)
	var saved []peripherals.Peripheral
	for i := 0; i < 6; i++ {
		p := newPeripheral(t, controllerID, base.Add(time.Duration(i)*time.Second))
		if i >= 4 {
			p.State = peripherals.Added
		}
		_, err := repo.Save(context.Background(), p)
		require.Nil(t, err)
		saved = append(saved, p)
	}
	_, err = repo.Save(context.Background(), newPeripheral(t, other, base))
	require.Nil(t, err)

	cases := []struct {
		desc  string
		pm    peripherals.PageMetadata
		total uint64
		ids   []string
	}{
		{
			desc:  "all peripherals of controller",
			pm:    peripherals.PageMetadata{ControllerID: controllerID},
			total: 6,
			ids:   []string{saved[0].ID, saved[1].ID, saved[2].ID, saved[3].ID, saved[4].ID, saved[5].ID},
		},
		{
			desc:  "added peripherals",
			pm:    peripherals.PageMetadata{ControllerID: controllerID, State: peripherals.Added, Limit: 10},
			total: 2,
			ids:   []string{saved[4].ID, saved[5].ID},
		},
		{
			desc:  "offset beyond total",
			pm:    peripherals.PageMetadata{ControllerID: controllerID, Offset: 10, Limit: 10},
			total: 6,
		},
	}

	for _, tc := range cases {
		page, err := repo.RetrieveAll(context.Background(), tc.pm)
		require.Nil(t, err, fmt.Sprintf("%s: unexpected error: %s", tc.desc, err))
		assert.Equal(t, tc.total, page.Total, tc.desc)
		var ids []string
		for _, p := range page.Peripherals {
			ids = append(ids, p.ID)
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
	first := newPeripheral(t, controllerID, base)
	second := newPeripheral(t, controllerID, base.Add(time.Second))
	second.State = peripherals.Added
	removed := newPeripheral(t, controllerID, base.Add(2*time.Second))
	removed.State = peripherals.Removed
	for _, p := range []peripherals.Peripheral{removed, second, first} {
		_, err := repo.Save(ctx, p)
		require.Nil(t, err)
	}

	var locked []string
	err = repo.Update(ctx, peripherals.Query{ControllerID: controllerID, States: peripherals.ReaddStates}, func(ps []peripherals.Peripheral) ([]peripherals.Peripheral, error) {
		for _, p := range ps {
			locked = append(locked, p.ID)
		}
		for i := range ps {
			ps[i].State = peripherals.Adding
			ps[i].UpdatedAt = base.Add(time.Minute)
		}
		return ps, nil
	})
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))
	assert.Equal(t, []string{first.ID, second.ID}, locked, "locked peripherals must be ordered by creation")

	got, err := repo.RetrieveByID(ctx, second.ID)
	require.Nil(t, err)
	assert.Equal(t, peripherals.Adding, got.State)
	assert.Equal(t, base.Add(time.Minute), got.UpdatedAt)
	assert.Equal(t, second.DataPointTypes, got.DataPointTypes, "update must not touch configuration")

	errAbort := errors.New("abort")
	err = repo.Update(ctx, peripherals.Query{IDs: []string{first.ID}}, func(ps []peripherals.Peripheral) ([]peripherals.Peripheral, error) {
		ps[0].State = peripherals.Failed
		return ps, errAbort
	})
	assert.True(t, errors.Contains(err, errAbort), fmt.Sprintf("expected %s got %s", errAbort, err))
	got, err = repo.RetrieveByID(ctx, first.ID)
	require.Nil(t, err)
	assert.Equal(t, peripherals.Adding, got.State, "aborted update must not persist")
}
