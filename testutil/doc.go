// Package testutil provides testing utilities for framecache.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic animations, a renderer that counts its calls,
// and an in-memory seekable file.
//
// # Animations
//
//	anim := testutil.NewCountingAnimation(testutil.Gradient(10, 30))
//	surf := render.NewSurface(64, 64)
//	anim.Render(3, surf)
//	anim.CallsFor(3) // 1
//
// # Reference Frames
//
//	want := testutil.FrameBytes(anim, 3, 64, 64)
package testutil
