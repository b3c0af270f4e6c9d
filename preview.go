package framecache

import "github.com/hupe1980/framecache/render"

// RenderFirstFrameOnly renders frame 0 of anim into dst without touching any
// cache file. It is meant for previews shown before a session exists.
func RenderFirstFrameOnly(anim render.Animation, dst render.Surface) error {
	if anim == nil || anim.FrameCount() <= 0 {
		return ErrNoFrames
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	anim.Render(0, dst)
	return nil
}
