package rbac

import "testing"

func TestRequirePermission(t *testing.T) {
	type tcase struct {
		role Role
		tag  string
		want string
	}
	tests := map[string]tcase{
		"guest login":         {RoleGuest, "[LOGIN]", ""},
		"guest anon":          {RoleGuest, "[ANON]", ""},
		"guest disconnect":    {RoleGuest, "[DISCON]", ""},
		"guest invite":        {RoleGuest, "[SENDINV]", "NOTAUTHENTICATED"},
		"guest host":          {RoleGuest, "[HOST]", "NOTAUTHENTICATED"},
		"guest game":          {RoleGuest, "[GAME]", "NOTAUTHENTICATED"},
		"player invite":       {RolePlayer, "[SENDINV]", ""},
		"player respond":      {RolePlayer, "[RSPINV]", ""},
		"player cancel":       {RolePlayer, "[CNCLUSR]", ""},
		"player report":       {RolePlayer, "[GAME]", ""},
		"player disconnect":   {RolePlayer, "[DISCON]", ""},
		"player register":     {RolePlayer, "[REG]", "ALREADYAUTHENTICATED"},
		"player anon":         {RolePlayer, "[ANON]", "ALREADYAUTHENTICATED"},
		"unknown for guest":   {RoleGuest, "[NOPE]", "UNKNOWNTAG[NOPE]"},
		"unknown for player":  {RolePlayer, "[NOPE]", "UNKNOWNTAG[NOPE]"},
		"server tag inbound":  {RolePlayer, "[AUTH]", "UNKNOWNTAG[AUTH]"},
		"nested tag inbound":  {RolePlayer, "[CONF]", "UNKNOWNTAG[CONF]"},
		"unknown role denied": {Role(9), "[LOGIN]", "NOTAUTHENTICATED"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := RequirePermission(tc.role, tc.tag); got != tc.want {
				t.Errorf("RequirePermission(%v, %q) = %q, want %q", tc.role, tc.tag, got, tc.want)
			}
		})
	}
}

func TestRoleFor(t *testing.T) {
	if RoleFor(false) != RoleGuest || RoleFor(true) != RolePlayer {
		t.Fatal("RoleFor mapping is wrong")
	}
	if RolePlayer.String() != "player" || Role(9).String() != "unknown" {
		t.Fatal("Role.String mismatch")
	}
}
