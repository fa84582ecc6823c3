package auth

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

type Action string

const (
	ActionAdmit        Action = "admit"
	ActionAdvance      Action = "advance"
	ActionComplete     Action = "complete"
	ActionSkip         Action = "skip"
	ActionCancel       Action = "cancel"
	ActionCancelAny    Action = "cancel_any"
	ActionViewQueue    Action = "view_queue"
	ActionViewOwn      Action = "view_own_status"
	ActionSetAccepting Action = "set_accepting"
	ActionViewStats    Action = "view_stats"
	ActionViewAudit    Action = "view_audit"
	ActionViewServers  Action = "view_servers"
)

var policy = map[Action][]Role{
	ActionAdmit:        {RolePatient},
	ActionAdvance:      {RoleDoctor, RoleStaff, RoleAdmin},
	ActionComplete:     {RoleDoctor, RoleStaff, RoleAdmin},
	ActionSkip:         {RoleDoctor, RoleStaff, RoleAdmin},
	ActionCancel:       {RolePatient, RoleDoctor, RoleStaff, RoleAdmin},
	ActionCancelAny:    {RoleDoctor, RoleStaff, RoleAdmin},
	ActionViewQueue:    {RolePatient, RoleDoctor, RoleStaff, RoleAdmin},
	ActionViewOwn:      {RolePatient},
	ActionSetAccepting: {RoleDoctor, RoleStaff, RoleAdmin},
	ActionViewStats:    {RoleDoctor, RoleStaff, RoleAdmin},
	ActionViewAudit:    {RoleAdmin},
	ActionViewServers:  {RolePatient, RoleDoctor, RoleStaff, RoleAdmin},
}

// CanPerform reports whether role is allowed to perform action at all.
// Ownership (own entry, own server) is checked by the handler.
func CanPerform(role Role, action Action) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}
