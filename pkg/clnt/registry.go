package clnt

// requestState is the lifecycle of a pendingRequest.
//
// A request starts linked and leaves that state exactly once: completed by
// the upcall with a reply, failed by the upcall with a socket error, or
// removed by its own caller on timeout, interruption or send failure.
type requestState int

const (
	stateLinked requestState = iota
	stateCompleted
	stateFailed
	stateRemoved
)

func (s requestState) String() string {
	switch s {
	case stateLinked:
		return "linked"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	case stateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// pendingRequest is one transmitted call awaiting its reply.
//
// Fields are guarded by the owning socketState's mutex. done is closed when
// the upcall completes or fails the request; it is never closed by remove,
// since the only waiter is the caller doing the removing.
type pendingRequest struct {
	xid   uint32
	state requestState
	reply []byte
	err   error
	done  chan struct{}
}

// registry maps transaction ids to the requests awaiting them on one socket.
// Every method must be called with the socketState mutex held.
type registry struct {
	pending map[uint32]*pendingRequest

	// onChange observes the in-flight count.
	onChange func(delta int)
}

func newRegistry(onChange func(delta int)) *registry {
	if onChange == nil {
		onChange = func(int) {}
	}
	return &registry{
		pending:  make(map[uint32]*pendingRequest),
		onChange: onChange,
	}
}

// register links a new request for xid. It fails with ErrDuplicateXID if
// xid is already pending, which keeps transaction ids unique per socket even
// when handles sharing it pick colliding ids.
func (r *registry) register(xid uint32) (*pendingRequest, error) {
	if _, exists := r.pending[xid]; exists {
		return nil, ErrDuplicateXID
	}

	req := &pendingRequest{
		xid:   xid,
		state: stateLinked,
		done:  make(chan struct{}),
	}
	r.pending[xid] = req
	r.onChange(1)
	return req, nil
}

// remove unlinks req if it is still linked and reports whether it did. A
// request already completed, failed or removed is left untouched.
func (r *registry) remove(req *pendingRequest) bool {
	if req.state != stateLinked {
		return false
	}

	if r.pending[req.xid] == req {
		delete(r.pending, req.xid)
	}
	req.state = stateRemoved
	r.onChange(-1)
	return true
}

// findAndComplete hands payload to the request waiting for xid, unlinks it
// and wakes its caller. It reports false when nothing is waiting for xid;
// the caller then still owns payload.
func (r *registry) findAndComplete(xid uint32, payload []byte) bool {
	req, ok := r.pending[xid]
	if !ok {
		return false
	}

	delete(r.pending, xid)
	req.state = stateCompleted
	req.reply = payload
	close(req.done)
	r.onChange(-1)
	return true
}

// failAll fails every pending request with err and empties the registry.
// It returns the number of requests failed.
func (r *registry) failAll(err error) int {
	n := len(r.pending)
	for xid, req := range r.pending {
		delete(r.pending, xid)
		req.state = stateFailed
		req.err = err
		close(req.done)
	}
	if n > 0 {
		r.onChange(-n)
	}
	return n
}

func (r *registry) size() int {
	return len(r.pending)
}
