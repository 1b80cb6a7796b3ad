package format

import "fmt"

// Exception is MINIDUMP_EXCEPTION_STREAM with its embedded record.
type Exception struct {
	ThreadID   uint32
	Code       uint32
	Flags      uint32
	Record     uint64 // address of a chained exception record
	Address    uint64
	Parameters []uint64
	Context    Location
}

func (e *Exception) String() string {
	return fmt.Sprintf("exception %#08x at %#x on thread %d", e.Code, e.Address, e.ThreadID)
}

// Exception decodes the exception stream.
func (d *Dump) Exception() (*Exception, error) {
	b, err := d.Stream(ExceptionStream)
	if err != nil {
		return nil, err
	}
	if len(b) < exceptionStreamSize {
		return nil, streamCorrupt(ExceptionStream, "%d bytes, need %d", len(b), exceptionStreamSize)
	}

	e := &Exception{
		ThreadID: getUint32LE(b[0:]),
		Code:     getUint32LE(b[8:]),
		Flags:    getUint32LE(b[12:]),
		Record:   getUint64LE(b[16:]),
		Address:  getUint64LE(b[24:]),
		Context:  readLocation(b[160:]),
	}
	n := getUint32LE(b[32:])
	if n > maxExceptionParameters {
		n = maxExceptionParameters
	}
	e.Parameters = make([]uint64, n)
	for i := range e.Parameters {
		e.Parameters[i] = getUint64LE(b[40+8*i:])
	}
	return e, nil
}
