package auth

// Known OAuth scopes used by the readiness service.
const (
	ScopeActivitiesWrite = "activities:write"
	ScopeActivitiesRead  = "activities:read"
	ScopeClientsRead     = "clients:read"
	ScopeClientsWrite    = "clients:write"
	ScopeChat            = "chat"
)

// Roles carried in the role claim.
const (
	RoleTrainee = "trainee"
	RoleHiker   = "hiker"
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)
