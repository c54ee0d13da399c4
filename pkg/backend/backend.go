// ABOUTME: Abstract contract to a device plugin
// ABOUTME: The worker never assumes a concrete backend; see backend/oto.go for one
package backend

import (
	"context"
	"time"

	"github.com/flowcast/audioworker/pkg/audio"
)

// Port is the abstract contract between the output worker and a device
// plugin. All methods are called with the worker's state mutex released,
// except Delay, which may be called with the mutex held because it is a
// cheap, non-blocking query.
type Port interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context)
	Open(ctx context.Context, format audio.Format) error
	Close(ctx context.Context)

	// Play writes as much of data as the device will currently accept.
	// A return of (0, nil) signals an unrecoverable failure; any non-nil
	// error is treated the same way. A partial write (n < len(data), nil
	// error) is not a failure.
	Play(ctx context.Context, data []byte) (int, error)

	Pause(ctx context.Context) error
	Drain(ctx context.Context)
	Cancel(ctx context.Context)

	// Delay returns how long until the device can accept more audio.
	// Zero means "now". Must not block or perform I/O.
	Delay() time.Duration

	SendTag(ctx context.Context, tag *audio.Tag)
}
