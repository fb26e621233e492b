package authentication

import "fmt"

// ErrorCode classifies an Error.
type ErrorCode int

const (
	errCodeOk ErrorCode = iota
	errCodeBadParameter
	errCodePairingFailed
	errCodeNoKey
	errCodeAuthenticationFailed
	errCodePersistenceFailed
	errCodeRandomSource
)

func (c ErrorCode) String() string {
	switch c {
	case errCodeOk:
		return "Ok"
	case errCodeBadParameter:
		return "BadParameter"
	case errCodePairingFailed:
		return "PairingFailed"
	case errCodeNoKey:
		return "NoKey"
	case errCodeAuthenticationFailed:
		return "AuthenticationFailed"
	case errCodePersistenceFailed:
		return "PersistenceFailed"
	case errCodeRandomSource:
		return "RandomSourceUnavailable"
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Error represents a failure of the crypto session. Two Errors match under errors.Is when their
// codes are equal, so the exported sentinels below can be used to classify any returned Error.
type Error struct {
	Code ErrorCode
	Info string
}

func newError(code ErrorCode, info string) error {
	return &Error{code, info}
}

func (e Error) Error() string {
	if e.Info == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Info)
}

func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return t.Code == e.Code
	case Error:
		return t.Code == e.Code
	}
	return false
}

var (
	// ErrInvalidPublicKey indicates a peer point that is malformed or not on P-256.
	ErrInvalidPublicKey = newError(errCodeBadParameter, "invalid public key")
	// ErrPairingFailed is returned by Session.Pair for any failure. The session is unchanged.
	ErrPairingFailed = newError(errCodePairingFailed, "")
	// ErrNoKey is returned by Session.Decrypt before a key has been established.
	ErrNoKey = newError(errCodeNoKey, "")
	// ErrAuthenticationFailed is returned when a ciphertext does not verify. It never carries
	// detail about which check failed.
	ErrAuthenticationFailed = newError(errCodeAuthenticationFailed, "")
	// ErrPersistenceFailed indicates that key material could not be written to or erased from
	// the store.
	ErrPersistenceFailed = newError(errCodePersistenceFailed, "")
	// ErrRandomSource indicates the secure random source is unusable.
	ErrRandomSource = newError(errCodeRandomSource, "")
)
