package mdmp

import (
	"github.com/Giulio2002/mdmp/format"
)

// decodeStream runs decode against the dump under the read lock. A missing
// or corrupt stream leaves the Reader usable.
func decodeStream[T any](r *Reader, decode func(*format.Dump) (T, error)) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.dump == nil {
		return zero, ErrClosedError
	}
	v, err := decode(r.dump)
	if err != nil {
		return zero, streamError(err, ErrStreamMissing)
	}
	return v, nil
}

// ThreadList decodes the thread list stream.
func (r *Reader) ThreadList() (*format.ThreadList, error) {
	return decodeStream(r, (*format.Dump).ThreadList)
}

// SystemInfo decodes the system info stream.
func (r *Reader) SystemInfo() (*format.SystemInfo, error) {
	return decodeStream(r, (*format.Dump).SystemInfo)
}

// ModuleList decodes the module list stream.
func (r *Reader) ModuleList() (*format.ModuleList, error) {
	return decodeStream(r, (*format.Dump).ModuleList)
}

// Exception decodes the exception stream.
func (r *Reader) Exception() (*format.Exception, error) {
	return decodeStream(r, (*format.Dump).Exception)
}

// MiscInfo decodes the misc info stream.
func (r *Reader) MiscInfo() (*format.MiscInfo, error) {
	return decodeStream(r, (*format.Dump).MiscInfo)
}

// Header returns the container header.
func (r *Reader) Header() (format.Header, error) {
	return decodeStream(r, func(d *format.Dump) (format.Header, error) {
		return d.Header(), nil
	})
}

// Streams returns the stream directory.
func (r *Reader) Streams() ([]format.DirectoryEntry, error) {
	return decodeStream(r, func(d *format.Dump) ([]format.DirectoryEntry, error) {
		return d.Streams(), nil
	})
}

// ThreadContext returns a copy of the raw CPU context recorded for t.
// The layout depends on the dump's architecture.
func (r *Reader) ThreadContext(t format.Thread) ([]byte, error) {
	if t.Context.Size == 0 {
		return nil, errorf(ErrStreamMissing, "thread %d has no context", t.ID)
	}
	return decodeStream(r, func(d *format.Dump) ([]byte, error) {
		src, err := d.Slice(t.Context)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), src...), nil
	})
}

// ThreadStack returns a copy of the stack memory captured for t, read
// through the memory region table.
func (r *Reader) ThreadStack(t format.Thread) ([]byte, error) {
	if t.Stack.Data.Size == 0 {
		return nil, errorf(ErrStreamMissing, "thread %d has no captured stack", t.ID)
	}
	return r.ReadVirtualMemory(t.Stack.Start, t.Stack.Data.Size)
}
