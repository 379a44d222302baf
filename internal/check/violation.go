package check

import "fmt"

// Code identifies one class of violation.
type Code string

const (
	CodeBadName           Code = "bad-name"
	CodeBadHashFormat     Code = "bad-hash-format"
	CodeDuplicateGID      Code = "duplicate-gid"
	CodeDuplicateName     Code = "duplicate-name"
	CodeDuplicateUID      Code = "duplicate-uid"
	CodeLockoutRisk       Code = "lockout-risk"
	CodePasswordMismatch  Code = "password-mismatch"
	CodeRoleExclusivity   Code = "role-exclusivity"
	CodeRootHome          Code = "root-home"
	CodeShellNotEnabled   Code = "shell-not-enabled"
	CodeSystemAccountName Code = "system-account-name"
)

// Violation is one finding against the declared configuration.
type Violation struct {
	Code    Code
	Subject string // user or group name, empty for global findings
	Message string
	Fatal   bool
}

func (v Violation) String() string {
	sev := "warning"
	if v.Fatal {
		sev = "error"
	}
	if v.Subject == "" {
		return fmt.Sprintf("%s [%s]: %s", sev, v.Code, v.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", sev, v.Code, v.Subject, v.Message)
}

// AnyFatal reports whether the set contains a fatal violation.
func AnyFatal(vs []Violation) bool {
	for _, v := range vs {
		if v.Fatal {
			return true
		}
	}
	return false
}
