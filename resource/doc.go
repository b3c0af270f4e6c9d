// Package resource bounds the work done in the background on behalf of
// frame caches.
//
// The Controller governs three resources:
//
//   - Build slots: how many cache files are built at the same time
//   - Build starts: how many builds may begin per second (token bucket)
//   - Transfer bandwidth: bytes per second moved to and from a remote mirror
//
// # Build Slots
//
//	rc := resource.NewController(resource.Config{
//	    MaxConcurrentBuilds: 4,
//	    BuildsPerSecond:     10,
//	})
//
//	if err := rc.AcquireBuild(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBuild()
//
// # Transfer Limiting
//
//	r := resource.NewRateLimitedReader(ctx, body, rc)
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional limiting without nil checks everywhere.
package resource
