package simulation

import (
	"github.com/mantasimb/jetraiders/internal/broadcast"
	"github.com/mantasimb/jetraiders/pkg/logger"
	"github.com/mantasimb/jetraiders/pkg/protocol"
)

// RunSerializer subscribes to the worker's snapshot stream, encodes each
// snapshot into the wire format exactly once, and publishes the bytes to the
// lobby's broadcaster (which itself keeps the "latest" slot for lag
// recovery — see internal/broadcast). Exits when snapshots is closed or done
// fires.
func RunSerializer(log logger.Logger, snapshots <-chan WorldSnapshot, out *broadcast.Broadcaster, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			encoded, err := protocol.Encode(protocol.TypeWorldUpdate, snap.ToWire())
			if err != nil {
				// Should not occur: every field is a concrete numeric/slice type.
				log.Printf("serializer: encode tick %d: %v", snap.Tick, err)
				continue
			}
			out.Publish(encoded)
		}
	}
}
