// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/absmach/farmgate"
	"github.com/absmach/farmgate/peripherals"
	"github.com/absmach/farmgate/pkg/apiutil"
	"github.com/absmach/farmgate/pkg/errors"
	svcerr "github.com/absmach/farmgate/pkg/errors/service"
	"github.com/absmach/farmgate/pkg/fsm"
	"github.com/absmach/farmgate/pkg/protocol"
	"github.com/absmach/farmgate/tasks"
	"github.com/absmach/farmgate/telemetry"
	"github.com/gofrs/uuid"
)

const (
	StateKey         = "state"
	OffsetKey        = "offset"
	LimitKey         = "limit"
	NameKey          = "name"
	FromKey          = "from"
	ToKey            = "to"
	DataPointTypeKey = "data_point_type"
	DefOffset        = 0
	DefLimit         = 10
	// ContentType represents JSON content type.
	ContentType = "application/json"

	// MaxLimitSize limits the page size.
	MaxLimitSize = 100
	// MaxNameSize limits name size to prevent making them too complex.
	MaxNameSize = 1024
)

// ValidateUUID validates UUID format.
func ValidateUUID(extID string) (err error) {
	id, err := uuid.FromString(extID)
	if id.String() != extID || err != nil {
		return apiutil.ErrInvalidIDFormat
	}

	return nil
}

// EncodeResponse encodes successful response.
func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(farmgate.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// EncodeError encodes an error response.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	var wrapper error
	if errors.Contains(err, apiutil.ErrValidation) {
		wrapper, err = errors.Unwrap(err)
	}

	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Contains(err, svcerr.ErrAuthentication),
		errors.Contains(err, apiutil.ErrBearerToken),
		errors.Contains(err, apiutil.ErrBearerKey):
		err = unwrap(err)
		w.WriteHeader(http.StatusUnauthorized)

	case errors.Contains(err, svcerr.ErrAuthorization):
		err = unwrap(err)
		w.WriteHeader(http.StatusForbidden)

	case errors.Contains(err, svcerr.ErrNotFound):
		err = unwrap(err)
		w.WriteHeader(http.StatusNotFound)

	case errors.Contains(err, svcerr.ErrConflict),
		errors.Contains(err, fsm.ErrInvalidTransition):
		err = unwrap(err)
		w.WriteHeader(http.StatusConflict)

	case errors.Contains(err, svcerr.ErrMalformedEntity),
		errors.Contains(err, errors.ErrMalformedEntity),
		errors.Contains(err, svcerr.ErrInvalidStatus),
		errors.Contains(err, svcerr.ErrMissingStatus),
		errors.Contains(err, tasks.ErrInvalidType),
		errors.Contains(err, tasks.ErrInvalidParams),
		errors.Contains(err, tasks.ErrExpired),
		errors.Contains(err, peripherals.ErrInvalidType),
		errors.Contains(err, peripherals.ErrInvalidConfig),
		errors.Contains(err, peripherals.ErrAmbiguousDataPointType),
		errors.Contains(err, telemetry.ErrUnboundDataPointType),
		errors.Contains(err, protocol.ErrInvalidTimestamp),
		errors.Contains(err, apiutil.ErrMissingID),
		errors.Contains(err, apiutil.ErrInvalidIDFormat),
		errors.Contains(err, apiutil.ErrNameSize),
		errors.Contains(err, apiutil.ErrMissingType),
		errors.Contains(err, apiutil.ErrLimitSize),
		errors.Contains(err, apiutil.ErrInvalidQueryParams),
		errors.Contains(err, apiutil.ErrInvalidTimeFormat),
		errors.Contains(err, apiutil.ErrValidation):
		err = unwrap(err)
		w.WriteHeader(http.StatusBadRequest)

	case errors.Contains(err, svcerr.ErrNotConnected):
		err = unwrap(err)
		w.WriteHeader(http.StatusServiceUnavailable)

	case errors.Contains(err, svcerr.ErrCreateEntity),
		errors.Contains(err, svcerr.ErrUpdateEntity):
		err = unwrap(err)
		w.WriteHeader(http.StatusUnprocessableEntity)

	case errors.Contains(err, apiutil.ErrUnsupportedContentType):
		err = unwrap(err)
		w.WriteHeader(http.StatusUnsupportedMediaType)

	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if wrapper != nil {
		err = errors.Wrap(wrapper, err)
	}

	if errorVal, ok := err.(errors.Error); ok {
		if err := json.NewEncoder(w).Encode(errorVal); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

func unwrap(err error) error {
	wrapper, err := errors.Unwrap(err)
	if wrapper != nil {
		return wrapper
	}
	return err
}
