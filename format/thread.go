package format

// MemoryDescriptor is MINIDUMP_MEMORY_DESCRIPTOR: a captured range and
// where its bytes live in the file.
type MemoryDescriptor struct {
	Start uint64
	Data  Location
}

// Thread is MINIDUMP_THREAD.
type Thread struct {
	ID            uint32
	SuspendCount  uint32
	PriorityClass uint32
	Priority      uint32
	TEB           uint64
	Stack         MemoryDescriptor
	Context       Location
}

// ThreadList is the decoded thread list stream.
type ThreadList struct {
	Threads []Thread
}

// Len returns the number of threads.
func (l *ThreadList) Len() int {
	return len(l.Threads)
}

// Find returns the thread with the given id.
func (l *ThreadList) Find(id uint32) (Thread, bool) {
	for _, t := range l.Threads {
		if t.ID == id {
			return t, true
		}
	}
	return Thread{}, false
}

// ThreadList decodes the thread list stream.
func (d *Dump) ThreadList() (*ThreadList, error) {
	n, b, err := d.list(ThreadListStream, threadSize)
	if err != nil {
		return nil, err
	}
	l := &ThreadList{Threads: make([]Thread, n)}
	for i := range l.Threads {
		rec := b[i*threadSize:]
		l.Threads[i] = Thread{
			ID:            getUint32LE(rec[0:]),
			SuspendCount:  getUint32LE(rec[4:]),
			PriorityClass: getUint32LE(rec[8:]),
			Priority:      getUint32LE(rec[12:]),
			TEB:           getUint64LE(rec[16:]),
			Stack: MemoryDescriptor{
				Start: getUint64LE(rec[24:]),
				Data:  readLocation(rec[32:]),
			},
			Context: readLocation(rec[40:]),
		}
	}
	return l, nil
}
