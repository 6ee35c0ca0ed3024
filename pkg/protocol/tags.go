// Package protocol defines the line-tag wire format shared by the directory
// server, the client and the peer game transport.
//
// Every message is a single newline-terminated line: one fixed bracketed tag
// immediately followed by a tag-specific payload. Payloads are not escaped,
// so they must never contain a newline or a bracketed tag of their own.
package protocol

// Client to server tags.
const (
	TagRegister      = "[REG]"
	TagLogin         = "[LOGIN]"
	TagAnon          = "[ANON]"
	TagDisconnect    = "[DISCON]"
	TagSendInvite    = "[SENDINV]"
	TagRespondInvite = "[RSPINV]"
	TagCancelInvite  = "[CNCLUSR]"
	TagHost          = "[HOST]"
)

// Server to client tags.
const (
	TagAuth  = "[AUTH]"
	TagMatch = "[MATCH]"
	TagError = "[ERROR]"
)

// TagGame carries peer gameplay and the client to server score report.
const TagGame = "[GAME]"

// Nested tags used inside payloads.
const (
	TagOnlineUpdate = "[UPDTUSERSONLINE]"
	TagNewUser      = "[NEWUSER]"
	TagRemoveUser   = "[RMVUSER]"
	TagConfirm      = "[CONF]"
	TagDeny         = "[DENY]"
	TagTurn         = "[TURN]"
	TagMove         = "[MOVE]"
	TagBoard        = "[BOARD]"
	TagGameOver     = "[GAMEOVER]"
)

// Status words.
const (
	Success   = "SUCCESS"
	Failure   = "FAILURE"
	NoUser    = "NOUSER"
	BadPass   = "BADPASS"
	UserTaken = "USERTAKEN"
	Tie       = "TIE"
	Aborted   = "ABORTED"
)

// Error kinds carried by TagError.
const (
	ErrKindUnknownTag           = "UNKNOWNTAG"
	ErrKindNotAuthenticated     = "NOTAUTHENTICATED"
	ErrKindAlreadyAuthenticated = "ALREADYAUTHENTICATED"
	ErrKindBadRequest           = "BADREQUEST"
	ErrKindRateLimited          = "RATELIMITED"
)

// DefaultGamePort is the well-known port a host listens on for its peer.
// It is also PostgreSQL's default port, so a host that runs the postgres
// store locally must pick another game port.
const DefaultGamePort = 5432
