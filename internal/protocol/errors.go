package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Registration.
	ErrRegistrationClosed  = "E_REGISTRATION_CLOSED"
	ErrRegistrationTimeout = "E_REGISTRATION_TIMEOUT"
	ErrBadToken            = "E_BAD_TOKEN"

	// Command layer.
	ErrSchema          = "E_SCHEMA"
	ErrCommandRejected = "E_COMMAND_REJECTED"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:     {},
	ErrRegistrationClosed:  {},
	ErrRegistrationTimeout: {},
	ErrBadToken:            {},
	ErrSchema:              {},
	ErrCommandRejected:     {},
	ErrInternal:            {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
