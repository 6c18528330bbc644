package domain

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Principal is the actor an authorization decision is made for. Regular
// principals are backed by a User; transient ones only by the access token
// they presented (for example a shared workspace link).
//
// Two principals are the same actor when their names match, regardless of
// roles or transience.
type Principal struct {
	Name      string   `json:"name"`
	Transient bool     `json:"transient"`
	Roles     []string `json:"roles"`
}

// PrincipalFromUser derives a regular principal from a user record.
func PrincipalFromUser(u *User) Principal {
	role := RoleUser
	if u.IsAdmin {
		role = RoleAdmin
	}
	return Principal{Name: u.Username, Roles: []string{role}}
}

// TransientPrincipal builds a principal for a bare access token.
func TransientPrincipal(accessToken string) Principal {
	return Principal{Name: accessToken, Transient: true, Roles: []string{RoleUser}}
}

// Equal reports whether p and other identify the same actor.
func (p Principal) Equal(other Principal) bool {
	return p.Name == other.Name
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
