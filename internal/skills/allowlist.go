package skills

// PrivilegedAllowlist is the closed, hard-coded set of tool names that may
// ever be registered as privileged built-ins (spec.md §3 "Privilege is
// static. ... A tool not on that list can never be privileged, no matter
// what its manifest claims."). Extending host capability means adding a
// name here and shipping its implementation with the binary, never a
// config or manifest flag.
var PrivilegedAllowlist = map[string]bool{
	"workspace_shell":    true,
	"host_shell":         true,
	"host_interpreter":   true,
	"host_os_automation": true,
	"delegate_task":      true,
	"remember_fact":      true,
	"recall_facts":       true,
}

// IsPrivilegedName reports whether name is eligible for the privileged
// tier. It says nothing about whether name is actually registered.
func IsPrivilegedName(name string) bool {
	return PrivilegedAllowlist[name]
}
