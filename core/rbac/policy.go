package rbac

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"incident-desk/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Permission string

const (
	PermIncidentsView   Permission = "incidents.view"
	PermIncidentsManage Permission = "incidents.manage"
)

const (
	RoleAnonymous = "anonymous"
	RoleAdmin     = "admin"
)

type Role struct {
	Name        string
	Permissions []Permission
}

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// DefaultRoles returns the role table for the configured auth mode. The admin
// always holds every permission. Anonymous callers may read unless reads are
// protected, and may also write in open mode.
func DefaultRoles(authCfg config.AuthConfig) []Role {
	anon := []Permission{}
	if !authCfg.Enabled() || !authCfg.ProtectReads {
		anon = append(anon, PermIncidentsView)
	}
	if !authCfg.Enabled() {
		anon = append(anon, PermIncidentsManage)
	}
	return []Role{
		{Name: RoleAdmin, Permissions: []Permission{PermIncidentsView, PermIncidentsManage}},
		{Name: RoleAnonymous, Permissions: anon},
	}
}

type Policy struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	roles    map[string][]Permission
}

func NewPolicy(roles []Role) *Policy {
	p := &Policy{}
	if err := p.Load(roles); err != nil {
		panic(err)
	}
	return p
}

// Load replaces the policy with roles.
func (p *Policy) Load(roles []Role) error {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return fmt.Errorf("casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return fmt.Errorf("casbin enforcer: %w", err)
	}
	table := map[string][]Permission{}
	for _, role := range roles {
		for _, perm := range role.Permissions {
			obj, act, ok := splitPermission(perm)
			if !ok {
				return fmt.Errorf("invalid permission %q for role %s", perm, role.Name)
			}
			if _, err := e.AddPolicy(role.Name, obj, act); err != nil {
				return err
			}
			table[role.Name] = append(table[role.Name], perm)
		}
	}
	p.mu.Lock()
	p.enforcer = e
	p.roles = table
	p.mu.Unlock()
	return nil
}

func (p *Policy) Allowed(roles []string, perm Permission) bool {
	if p == nil {
		return false
	}
	obj, act, ok := splitPermission(perm)
	if !ok {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, role := range roles {
		allowed, err := p.enforcer.Enforce(role, obj, act)
		if err == nil && allowed {
			return true
		}
	}
	return false
}

func (p *Policy) PermissionsForRoles(roles []string) []Permission {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	seen := map[Permission]struct{}{}
	var res []Permission
	for _, role := range roles {
		for _, perm := range p.roles[role] {
			if _, ok := seen[perm]; ok {
				continue
			}
			seen[perm] = struct{}{}
			res = append(res, perm)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// RolesFor maps a request to its roles: a live session is the admin, anything
// else is anonymous.
func RolesFor(authenticated bool) []string {
	if authenticated {
		return []string{RoleAdmin}
	}
	return []string{RoleAnonymous}
}

func splitPermission(perm Permission) (string, string, bool) {
	idx := strings.LastIndex(string(perm), ".")
	if idx <= 0 || idx == len(perm)-1 {
		return "", "", false
	}
	return string(perm[:idx]), string(perm[idx+1:]), true
}
