package vfs

// ListxattrCallback receives one attribute name. The name is only valid
// for the duration of the call. Returning ScanStop ends the listing; the
// rejected name is offered again when the listing is resumed.
type ListxattrCallback func(name []byte, cookie uint64) ScanAction

// ListxattrComplete ends a listing. Resuming with cookie continues after
// the last accepted name.
type ListxattrComplete func(status Error, h *OpenHandle, cookie uint64, eof bool, attr *Attrs)

// Listxattr enumerates the attribute names of h that follow cookie.
// A cookie of zero starts at the beginning.
func (t *Thread) Listxattr(h *OpenHandle, attrMask AttrMask, cookie uint64, cb ListxattrCallback, complete ListxattrComplete) {
	if !h.Module.Capabilities().Has(CapXattr) {
		reject(h.Module, OpListxattr, ErrNotSup)
		complete(ErrNotSup, h, cookie, true, nil)

		return
	}

	req := t.allocHandleRequest(h, OpListxattr)
	req.complete = t.listxattrComplete

	args := &req.Listxattr
	args.Handle = h
	args.Cookie = cookie
	args.RCookie = cookie
	args.Attr.ReqMask = attrMask | AttrMaskCacheable
	args.callback = cb
	args.complete = complete

	if h.Module.Capabilities().Has(CapBlocking) {
		args.bounce = t.vfs.newBounce()
	}

	t.dispatch(req)
}

func (t *Thread) listxattrComplete(req *Request) {
	args := &req.Listxattr

	if b := args.bounce; b != nil {
		if req.Status == OK {
			b.replay(args)
		}

		b.release()

		args.bounce = nil
	}

	if req.Status == OK {
		t.vfs.cache.Insert(req.FHHash, req.FH, &args.Attr)
	}

	t.observe(req)

	args.complete(req.Status, args.Handle, args.RCookie, args.REOF, &args.Attr)

	t.freeRequest(req)
}
