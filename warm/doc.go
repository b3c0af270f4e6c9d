// Package warm prepares cache files for many animations in the background.
//
// A Warmer verifies or builds one cache file per Job inside a cachedir.Dir.
// Builds share the build slots and start rate of a resource.Controller,
// concurrent jobs for the same key are collapsed into one, and an optional
// blobstore.Mirror lets one machine reuse files another machine built.
//
//	w, _ := warm.New(warm.Config{Dir: dir, Controller: rc})
//	results, err := w.Warm(ctx, jobs)
//
// Canceling ctx cancels the sessions of all running jobs; partially built
// files are removed.
package warm
