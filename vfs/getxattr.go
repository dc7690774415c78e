package vfs

// GetxattrCallback receives the value of an attribute. The segments and
// the attributes are only valid for the duration of the call.
type GetxattrCallback func(status Error, valueLength uint32, iov [][]byte, attr *Attrs)

// Getxattr reads the attribute name of h into the segments iov. The
// attributes in attrMask are returned alongside.
func (t *Thread) Getxattr(h *OpenHandle, name []byte, iov [][]byte, attrMask AttrMask, cb GetxattrCallback) {
	if !h.Module.Capabilities().Has(CapXattr) {
		reject(h.Module, OpGetxattr, ErrNotSup)
		cb(ErrNotSup, 0, nil, nil)

		return
	}

	req := t.allocHandleRequest(h, OpGetxattr)
	req.complete = t.getxattrComplete

	args := &req.Getxattr
	args.Handle = h
	args.Name = name
	args.Iov = iov
	args.Attr.ReqMask = attrMask | AttrMaskCacheable
	args.callback = cb

	t.dispatch(req)
}

func (t *Thread) getxattrComplete(req *Request) {
	args := &req.Getxattr

	if req.Status == OK {
		t.vfs.cache.Insert(req.FHHash, req.FH, &args.Attr)
	} else {
		args.RValueLength = 0
		args.RNiov = 0
	}

	t.observe(req)

	args.callback(req.Status, args.RValueLength, args.Iov[:args.RNiov], &args.Attr)

	t.freeRequest(req)
}
