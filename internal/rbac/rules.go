package rbac

// Roles are an explicit dispatch: "participant" takes assessments,
// "clinician" reviews them, "admin" also seeds the catalog.
var RolePermissions = map[string][]string{
	"participant": {
		"attempt:start",
		"attempt:answer",
		"attempt:finalize",
		"attempt:view-own",
		"dashboard:view",
	},
	"clinician": {
		"review:list",
		"review:view",
		"review:decide",
		"review:annotate",
		"attempt:view-all",
	},
	"admin": {
		"*", // everything
	},
}
