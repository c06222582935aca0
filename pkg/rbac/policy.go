package rbac

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

//go:embed model.conf
var modelConf string

//go:embed policy.csv
var policyCSV string

// Policy maps roles to the resource actions they may perform.
// Roles inherit along the lattice: viewer < editor < admin < owner.
type Policy struct {
	enforcer *casbin.Enforcer
}

// NewPolicy builds the built-in project policy
func NewPolicy() (*Policy, error) {
	return NewPolicyFromText(modelConf, policyCSV)
}

// NewPolicyFromText builds a policy from a casbin model and CSV policy lines
func NewPolicyFromText(modelText, policyText string) (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	r := csv.NewReader(strings.NewReader(policyText))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}

	for _, rec := range records {
		switch {
		case len(rec) == 4 && rec[0] == "p":
			if _, err := enforcer.AddPolicy(rec[1], rec[2], rec[3]); err != nil {
				return nil, fmt.Errorf("failed to add policy %v: %w", rec, err)
			}
		case len(rec) == 3 && rec[0] == "g":
			if _, err := enforcer.AddGroupingPolicy(rec[1], rec[2]); err != nil {
				return nil, fmt.Errorf("failed to add role inheritance %v: %w", rec, err)
			}
		default:
			return nil, fmt.Errorf("invalid policy line: %v", rec)
		}
	}

	return &Policy{enforcer: enforcer}, nil
}

// Allowed reports whether role may perform perm
func (p *Policy) Allowed(role Role, perm Permission) (bool, error) {
	if role == RoleNone {
		return false, nil
	}
	return p.enforcer.Enforce(string(role), string(perm.Resource), string(perm.Action))
}

// Permissions lists the explicit grants for role, including inherited ones
func (p *Policy) Permissions(role Role) ([]Permission, error) {
	rules, err := p.enforcer.GetImplicitPermissionsForUser(string(role))
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		perms = append(perms, Permission{Resource: Resource(rule[1]), Action: Action(rule[2])})
	}
	return perms, nil
}
