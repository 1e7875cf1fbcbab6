package httpapi

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rtm0/nino34/internal/climate"
)

// Dataset holds the field served by the API. It is empty until the loader
// finishes.
type Dataset struct {
	field atomic.Pointer[climate.Field]
}

// Set publishes a loaded field.
func (d *Dataset) Set(f *climate.Field) {
	d.field.Store(f)
}

// Field returns the loaded field or nil.
func (d *Dataset) Field() *climate.Field {
	return d.field.Load()
}

// CheckReadiness returns nil once a field has been loaded.
func (d *Dataset) CheckReadiness(_ context.Context) error {
	if d.Field() == nil {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}
