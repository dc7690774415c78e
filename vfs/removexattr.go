package vfs

type RemovexattrCallback func(status Error, preAttr, postAttr *Attrs)

// Removexattr deletes the attribute name of h.
func (t *Thread) Removexattr(h *OpenHandle, name []byte, preMask, postMask AttrMask, cb RemovexattrCallback) {
	if !h.Module.Capabilities().Has(CapXattr) {
		reject(h.Module, OpRemovexattr, ErrNotSup)
		cb(ErrNotSup, nil, nil)

		return
	}

	req := t.allocHandleRequest(h, OpRemovexattr)
	req.complete = t.removexattrComplete

	args := &req.Removexattr
	args.Handle = h
	args.Name = name
	args.PreAttr.ReqMask = preMask
	args.PostAttr.ReqMask = postMask | AttrMaskCacheable
	args.callback = cb

	t.dispatch(req)
}

func (t *Thread) removexattrComplete(req *Request) {
	args := &req.Removexattr

	if req.Status == OK {
		t.vfs.cache.Insert(req.FHHash, req.FH, &args.PostAttr)
	}

	t.observe(req)

	args.callback(req.Status, &args.PreAttr, &args.PostAttr)

	t.freeRequest(req)
}
