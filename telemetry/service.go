// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/absmach/farmgate/pkg/messaging"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/pkg/uuid"
)

const publisherName = "farmgate"

// PeripheralRepository looks up the peripheral readings belong to.
type PeripheralRepository interface {
	RetrieveByID(ctx context.Context, id string) (peripherals.Peripheral, error)
}

type service struct {
	repo        Repository
	peripherals PeripheralRepository
	publisher   messaging.Publisher
	clock       func() time.Time
}

var _ Service = (*service)(nil)

// NewService returns a new telemetry Service. A nil publisher disables
// the broker fan-out.
func NewService(repo Repository, prepo PeripheralRepository, publisher messaging.Publisher) Service {
	return &service{
		repo:        repo,
		peripherals: prepo,
		publisher:   publisher,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

func (svc *service) Save(ctx context.Context, controllerID string, msg protocol.Telemetry) ([]DataPoint, error) {
	ts, err := msg.Time(svc.clock())
	if err != nil {
		return nil, err
	}
	if !uuid.Valid(msg.Peripheral) {
		return nil, errors.Wrap(svcerr.ErrMalformedEntity, fmt.Errorf("peripheral %q is not a uuid", msg.Peripheral))
	}
	if len(msg.DataPoints) == 0 {
		return []DataPoint{}, nil
	}

	p, err := svc.peripherals.RetrieveByID(ctx, msg.Peripheral)
	if err != nil {
		return nil, errors.Wrap(svcerr.ErrViewEntity, err)
	}
	if p.ControllerID != controllerID {
		return nil, errors.Wrap(svcerr.ErrAuthorization, fmt.Errorf("peripheral %s", p.ID))
	}

	points := make([]DataPoint, 0, len(msg.DataPoints))
	for _, dp := range msg.DataPoints {
		if !uuid.Valid(dp.DataPointType) {
			return nil, errors.Wrap(svcerr.ErrMalformedEntity, fmt.Errorf("data point type %q is not a uuid", dp.DataPointType))
		}
		if !p.Bound(dp.DataPointType) {
			return nil, errors.Wrap(ErrUnboundDataPointType, fmt.Errorf("data point type %s", dp.DataPointType))
		}
		points = append(points, DataPoint{
			PeripheralID:    p.ID,
			DataPointTypeID: dp.DataPointType,
			Value:           dp.Value,
			Time:            ts,
		})
	}

	saved, err := svc.repo.Save(ctx, p.ID, points)
	if err != nil {
		return nil, errors.Wrap(svcerr.ErrCreateEntity, err)
	}

	if err := svc.publish(ctx, controllerID, p.ID, saved); err != nil {
		return saved, errors.Wrap(ErrPublish, err)
	}

	return saved, nil
}

func (svc *service) List(ctx context.Context, pm PageMetadata) (Page, error) {
	if !uuid.Valid(pm.PeripheralID) {
		return Page{}, errors.Wrap(svcerr.ErrMalformedEntity, fmt.Errorf("peripheral %q is not a uuid", pm.PeripheralID))
	}
	page, err := svc.repo.RetrieveAll(ctx, pm)
	if err != nil {
		return Page{}, errors.Wrap(svcerr.ErrViewEntity, err)
	}

	return page, nil
}

func (svc *service) publish(ctx context.Context, controllerID, peripheralID string, points []DataPoint) error {
	if svc.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(points)
	if err != nil {
		return err
	}
	msg := messaging.Message{
		Controller: controllerID,
		Subtopic:   peripheralID,
		Publisher:  publisherName,
		Created:    svc.clock().UnixNano(),
		Payload:    payload,
	}

	return svc.publisher.Publish(ctx, controllerID, &msg)
}
