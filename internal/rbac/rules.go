package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"applicant": {
		"program:view",
		"application:create",
		"application:view-own",
		"user:change_password",
	},
	"reviewer": {
		"program:view",
		"assignment:view-own",
		"scores:view-own",
		"scores:write-own",
		"review:feedback",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
