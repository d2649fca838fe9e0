package users

// Role determines which office console a staff account may drive.
// Superadmin has every office plus the administrative controls.
type Role string

const (
	RoleSuperadmin     Role = "SUPERADMIN"
	RoleCashier        Role = "CASHIER"
	RoleMarketing      Role = "MARKETING"
	RoleBusinessOffice Role = "BUSINESS_OFFICE"
	RoleCSDL           Role = "CSDL"
	RoleRegistrar      Role = "REGISTRAR"
)

func (r Role) String() string {
	return string(r)
}

// OfficeRoles lists every role tied to a single office console.
func OfficeRoles() []Role {
	return []Role{RoleCashier, RoleMarketing, RoleBusinessOffice, RoleCSDL, RoleRegistrar}
}
