// Package fs provides the filesystem seam used by the frame cache.
//
// The package defines two key interfaces:
//
//   - [File]: an open, seekable file with read/write/sync capabilities
//   - [FileSystem]: open, remove, rename and directory operations
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility for fault injection (short writes, short
//     reads, failing seeks, failing opens)
//
// # Usage
//
// Production code uses fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDONLY, 0)
//
// Tests inject [FaultyFS] to simulate corruption and I/O failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".fcache", fs.Fault{ReadLimit: 128})
//
// Nothing here takes a context.Context; cancellation of long builds is
// cooperative and checked by the callers between records.
package fs
