package vfs

type OpenCallback func(status Error, h *OpenHandle)

// Open returns a referenced handle for fh. Handles are shared: opening a
// handle that is already open takes another reference and completes inline.
func (t *Thread) Open(fh []byte, flags OpenFlags, cb OpenCallback) {
	module, status := t.vfs.Module(fh)
	if status != OK {
		cb(status, nil)

		return
	}

	if h, ok := t.vfs.handles.acquire(fh); ok {
		cb(OK, h)

		return
	}

	req := t.allocRequest(module, fh, HashFH(fh), OpOpen)
	req.Open.Flags = flags
	req.Open.callback = cb
	req.complete = t.openComplete

	t.dispatch(req)
}

func (t *Thread) openComplete(req *Request) {
	args := &req.Open
	cb := args.callback
	status := req.Status

	t.observe(req)

	if status != OK {
		t.freeRequest(req)
		cb(status, nil)

		return
	}

	h := &OpenHandle{
		Module:  req.Module,
		FH:      append([]byte(nil), req.FH...),
		FHHash:  req.FHHash,
		Private: args.RPrivate,
	}

	h, inserted := t.vfs.handles.insert(h)
	if !inserted {
		// Lost a race with a concurrent open; drop the private state again.
		t.closePrivate(req.Module, h.FH, h.FHHash, args.RPrivate)
	}

	t.freeRequest(req)
	cb(OK, h)
}

// Release drops a reference to h. The module is asked to close the
// object when the last reference is gone.
func (t *Thread) Release(h *OpenHandle) {
	if !t.vfs.handles.release(h) {
		return
	}

	t.closePrivate(h.Module, h.FH, h.FHHash, h.Private)
}

func (t *Thread) closePrivate(module Module, fh []byte, fhHash uint64, private any) {
	req := t.allocRequest(module, fh, fhHash, OpClose)
	req.Close.Private = private
	req.complete = t.closeComplete

	t.dispatch(req)
}

func (t *Thread) closeComplete(req *Request) {
	t.observe(req)

	if req.Status != OK {
		t.log.Warnf("close on %s failed: %s", req.Module.Name(), req.Status)
	}

	t.freeRequest(req)
}
