package auth

// Permissions is the capability set derived from a user's role. It is a pure
// projection: no state, no side effects, recomputed from the session identity
// on every evaluation.
type Permissions struct {
	CanDeletePatient bool `json:"can_delete_patient"`
	CanDeleteRecords bool `json:"can_delete_records"`
	CanEditRecords   bool `json:"can_edit_records"`
	CanCreateRecords bool `json:"can_create_records"`
}

// PermissionsFor maps a role to its capability set.
//
// Role hierarchy:
//   - admin/doctor: full permissions including patient deletion
//   - staff: can create, edit and delete timeline records (visits,
//     observations, prescriptions, exercise plans) but cannot delete patients
//
// An unknown or empty role gets no capabilities.
func PermissionsFor(role Role) Permissions {
	if !role.Valid() {
		return Permissions{}
	}
	return Permissions{
		CanDeletePatient: role == RoleAdmin || role == RoleDoctor,
		CanDeleteRecords: true,
		CanEditRecords:   true,
		CanCreateRecords: true,
	}
}
