// Package mdmp is a read-only, zero-copy reader for minidump crash dumps.
//
// The dump file is memory-mapped once when the Reader is opened and stays
// mapped until Close. Streams are decoded on demand straight out of the
// mapping; nothing a Reader returns points into mapped memory, so results
// stay valid after Close.
//
// Key features:
//   - Virtual memory reads across the captured memory regions (memory list
//     and memory64 list streams)
//   - Thread list, system info, module list, exception and misc info streams
//   - Safe for concurrent readers
//
// Basic usage:
//
//	r, err := mdmp.Open("/path/to/crash.dmp")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	// Read 16 bytes of the crashed process's memory
//	data, err := r.ReadVirtualMemory(0x7ff95f9b1000, 16)
//	switch {
//	case mdmp.IsNotMapped(err):
//	    // address was not captured
//	case mdmp.IsOutOfBounds(err):
//	    // range runs past the captured region
//	case err != nil:
//	    log.Fatal(err)
//	}
//
//	threads, err := r.ThreadList()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(threads.Len(), "threads")
package mdmp
