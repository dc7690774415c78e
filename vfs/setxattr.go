package vfs

// SetxattrCallback receives the attributes from before and after the change.
type SetxattrCallback func(status Error, preAttr, postAttr *Attrs)

// Setxattr stores the attribute name of h. The value is given as segments
// holding valueLength bytes. With SetxattrCreate the attribute must not
// exist, with SetxattrReplace it must.
func (t *Thread) Setxattr(h *OpenHandle, name []byte, value [][]byte, valueLength uint32, flags SetxattrFlags, preMask, postMask AttrMask, cb SetxattrCallback) {
	if !h.Module.Capabilities().Has(CapXattr) {
		reject(h.Module, OpSetxattr, ErrNotSup)
		cb(ErrNotSup, nil, nil)

		return
	}

	if flags > SetxattrReplace {
		reject(h.Module, OpSetxattr, ErrInval)
		cb(ErrInval, nil, nil)

		return
	}

	req := t.allocHandleRequest(h, OpSetxattr)
	req.complete = t.setxattrComplete

	args := &req.Setxattr
	args.Handle = h
	args.Name = name
	args.Value = value
	args.ValueLength = valueLength
	args.Flags = flags
	args.PreAttr.ReqMask = preMask
	args.PostAttr.ReqMask = postMask | AttrMaskCacheable
	args.callback = cb

	t.dispatch(req)
}

func (t *Thread) setxattrComplete(req *Request) {
	args := &req.Setxattr

	if req.Status == OK {
		t.vfs.cache.Insert(req.FHHash, req.FH, &args.PostAttr)
	}

	t.observe(req)

	args.callback(req.Status, &args.PreAttr, &args.PostAttr)

	t.freeRequest(req)
}
