// Package transcript records every transcript mutation to the configured
// sinks.
package transcript

import (
	"context"
	"errors"

	"ragchat/models"
)

var ErrSerialization = errors.New("failed to serialize transcript")

type Recorder interface {
	Record(ctx context.Context, t *models.Transcript) error
}

// Multi fans a write out to every sink. All sinks are attempted and their
// errors joined.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, t *models.Transcript) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, t *models.Transcript) error

func (f RecorderFunc) Record(ctx context.Context, t *models.Transcript) error {
	return f(ctx, t)
}
