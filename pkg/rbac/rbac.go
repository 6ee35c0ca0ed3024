// Package rbac decides which client tags a session may send in its current
// role.
package rbac

import "github.com/NicolasHaas/gomoku/pkg/protocol"

// Role is a session's standing with the directory.
type Role int

const (
	RoleGuest  Role = iota // connected, not logged in
	RolePlayer             // bound to a directory user
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RolePlayer:
		return "player"
	default:
		return "unknown"
	}
}

// RoleFor maps a session's login state to its role.
func RoleFor(authenticated bool) Role {
	if authenticated {
		return RolePlayer
	}
	return RoleGuest
}

// permissionMatrix maps roles to the tags they may send.
var permissionMatrix = map[Role]map[string]bool{
	RoleGuest: {
		protocol.TagRegister:   true,
		protocol.TagLogin:      true,
		protocol.TagAnon:       true,
		protocol.TagDisconnect: true,
	},
	RolePlayer: {
		protocol.TagDisconnect:    true,
		protocol.TagSendInvite:    true,
		protocol.TagRespondInvite: true,
		protocol.TagCancelInvite:  true,
		protocol.TagHost:          true,
		protocol.TagGame:          true,
	},
}

// Known reports whether tag is a client to server tag in any role.
func Known(tag string) bool {
	for _, perms := range permissionMatrix {
		if perms[tag] {
			return true
		}
	}
	return false
}

// HasPermission checks if a role may send tag.
func HasPermission(role Role, tag string) bool {
	perms, ok := permissionMatrix[role]
	if !ok {
		return false
	}
	return perms[tag]
}

// RequirePermission returns the error kind to reply with when role may not
// send tag, or "" if allowed.
func RequirePermission(role Role, tag string) string {
	switch {
	case HasPermission(role, tag):
		return ""
	case !Known(tag):
		return protocol.ErrKindUnknownTag + tag
	case role == RolePlayer:
		return protocol.ErrKindAlreadyAuthenticated
	default:
		return protocol.ErrKindNotAuthenticated
	}
}
