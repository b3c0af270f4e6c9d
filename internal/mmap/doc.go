// Package mmap maps finished cache files read-only.
//
// The local blob store hands mapped Regions to the mirror, which copies
// them out with Section instead of reading through a file descriptor.
// On unix the file is mapped with mmap(2); elsewhere it is read into memory
// once.
//
//	r, err := mmap.Map("sticker_512.fcache")
//	if err != nil { ... }
//	defer r.Close()
//
//	r.Sequential()
//	rec, err := r.Section(off, n)
//
// Slices returned by Bytes and Section are invalid after Close.
package mmap
