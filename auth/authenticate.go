package auth

import (
	"fmt"

	"github.com/kuleuven/nfs4xattr/bufpool"
	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/xdr"
)

type AuthError struct {
	Code uint32
}

func (err *AuthError) Error() string {
	return fmt.Sprintf("auth error: %d", err.Code)
}

var (
	ErrBadCredentials = &AuthError{Code: msg.AUTH_BADCRED}
	ErrTooWeak        = &AuthError{Code: msg.AUTH_TOOWEAK}
)

// Authenticate checks the credentials of a call. AUTH_NULL calls are
// accepted unless requireUnix is set, in which case nil creds are never
// returned without an error. The reply always carries an AUTH_NULL verifier.
func Authenticate(cred msg.Auth, requireUnix bool) (msg.Auth, *Creds, error) {
	verf := msg.Auth{Flavor: msg.AUTH_FLAVOR_NULL, Body: []byte{}}

	switch cred.Flavor {
	case msg.AUTH_FLAVOR_NULL:
		if requireUnix {
			return verf, nil, ErrTooWeak
		}

		return verf, nil, nil
	case msg.AUTH_FLAVOR_UNIX:
	default:
		return verf, nil, ErrTooWeak
	}

	var credentials Creds

	if err := xdr.NewDecoder(bufpool.New(cred.Body)).Decode(&credentials); err != nil {
		return verf, nil, ErrBadCredentials
	}

	return verf, &credentials, nil
}

// MaxGroups is the limit on supplementary groups in AUTH_UNIX credentials.
const MaxGroups = 16

type Creds struct {
	ExpirationValue  uint32
	Hostname         string
	UID              uint32
	GID              uint32
	AdditionalGroups []uint32
}

func (c *Creds) Decode(decoder *xdr.Decoder) error {
	var err error

	if c.ExpirationValue, err = decoder.Uint32(); err != nil {
		return err
	}

	if c.Hostname, err = decoder.String(); err != nil {
		return err
	}

	if c.UID, err = decoder.Uint32(); err != nil {
		return err
	}

	if c.GID, err = decoder.Uint32(); err != nil {
		return err
	}

	length, err := decoder.Uint32()
	if err != nil {
		return err
	}

	if length > MaxGroups {
		return ErrBadCredentials
	}

	c.AdditionalGroups = make([]uint32, length)

	for i := range c.AdditionalGroups {
		if c.AdditionalGroups[i], err = decoder.Uint32(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Creds) String() string {
	if c == nil {
		return "anonymous"
	}

	return fmt.Sprintf("hostname: %s, uid: %d, gid: %d, groups: %v", c.Hostname, c.UID, c.GID, c.AdditionalGroups)
}
