package vfs

import (
	"cmp"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// NameCookie returns the listing cookie of an attribute name, for modules
// whose storage has no cookies of its own. The cookie only depends on the
// name, so a resumed listing is not shifted by names added or removed in
// between.
func NameCookie(name string) uint64 {
	if c := xxhash.Sum64String(name); c != 0 {
		return c
	}

	return 1
}

// EmitNames emits the names whose NameCookie follows a.Cookie, in cookie
// order, and sets REOF when all of them were accepted.
func (a *ListxattrArgs) EmitNames(names []string) {
	type entry struct {
		cookie uint64
		name   string
	}

	entries := make([]entry, 0, len(names))

	for _, name := range names {
		if c := NameCookie(name); c > a.Cookie {
			entries = append(entries, entry{cookie: c, name: name})
		}
	}

	slices.SortFunc(entries, func(x, y entry) int {
		return cmp.Compare(x.cookie, y.cookie)
	})

	for _, e := range entries {
		if a.Emit([]byte(e.name), e.cookie) == ScanStop {
			a.REOF = false

			return
		}

		a.RCookie = e.cookie
	}

	a.REOF = true
}
