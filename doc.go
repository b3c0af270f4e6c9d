// Package framecache caches the rendered frames of vector animations on disk.
//
// Rendering a vector sticker is expensive; decompressing a stored frame is
// not. A Session renders every frame of an animation once, compresses it and
// appends it to a cache file. Later playback reads frames back from that file
// and only falls back to the renderer when the file cannot be trusted.
//
// # Quick Start
//
//	surf := render.NewSurface(512, 512)
//	s, _ := framecache.NewSession("/cache/sticker_512.fcache", anim, compress.Default)
//	defer func() {
//	    if s.Dispose() {
//	        os.Remove(s.Path()) // the file produced read errors
//	    }
//	}()
//
//	outcome, err := s.EnsureCache(framecache.CacheRequest{
//	    Surface:     surf,
//	    AllowCreate: true,
//	    ReducedRate: render.ReducedRate(anim, limitFPS),
//	})
//
//	for i := 0; i < anim.FrameCount(); i++ {
//	    s.GetFrame(i, surf) // pixels are correct whatever the outcome
//	}
//
// # Cache File Layout
//
// All integers are little-endian u32 without padding:
//
//	magic | frameCount | maxCompressedFrameSize | records...
//	record: compressedSize | payload[compressedSize]
//
// A record of size zero carries no payload; the frame is rendered when
// requested. Reduced-rate files (see render.ReducedRate) store only even
// frames. The layout is implemented by package persistence.
//
// # Reliability
//
// EnsureCache reuses a file only if its header matches the live animation
// and its records exactly fill the file. During playback any read,
// size or decompression failure marks the session, rewinds the file and
// renders the frame instead. Dispose reports that mark so the owner can
// delete the file.
//
// # Cancellation
//
// Cancel may be called from any goroutine. It is observed between records
// while verifying or building, never in the middle of one; a canceled build
// deletes its partial file.
package framecache
