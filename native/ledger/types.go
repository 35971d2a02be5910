package ledger

// Role identifiers understood by the ledger. Roles are flat capability tags
// kept per account; there is no hierarchy between them.
const (
	RoleAdmin  = "ROLE_ADMIN"
	RoleMinter = "ROLE_MINTER"
	RolePauser = "ROLE_PAUSER"
)

// ValidRole reports whether the provided identifier names a ledger role.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleMinter, RolePauser:
		return true
	}
	return false
}

// WhitelistEntry records a recipient approved to hold and spend relief funds.
// Entries are never deleted; deactivation flips the Active flag so the audit
// history stays intact.
type WhitelistEntry struct {
	Name         string
	Region       string
	RegisteredAt uint64
	Active       bool
}
