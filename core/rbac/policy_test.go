package rbac

import (
	"testing"

	"incident-desk/config"
)

func TestAdminModeAnonymousCanOnlyRead(t *testing.T) {
	p := NewPolicy(DefaultRoles(config.AuthConfig{Mode: config.AuthModeAdmin}))
	anon := RolesFor(false)
	if !p.Allowed(anon, PermIncidentsView) {
		t.Fatalf("anonymous should read by default")
	}
	if p.Allowed(anon, PermIncidentsManage) {
		t.Fatalf("anonymous must not manage in admin mode")
	}
	admin := RolesFor(true)
	if !p.Allowed(admin, PermIncidentsView) || !p.Allowed(admin, PermIncidentsManage) {
		t.Fatalf("admin should hold every permission")
	}
}

func TestProtectReadsHidesListFromAnonymous(t *testing.T) {
	p := NewPolicy(DefaultRoles(config.AuthConfig{Mode: config.AuthModeAdmin, ProtectReads: true}))
	if p.Allowed(RolesFor(false), PermIncidentsView) {
		t.Fatalf("anonymous read should be denied when reads are protected")
	}
	if !p.Allowed(RolesFor(true), PermIncidentsView) {
		t.Fatalf("admin read should be allowed")
	}
}

func TestOpenModeAllowsAnonymousWrites(t *testing.T) {
	p := NewPolicy(DefaultRoles(config.AuthConfig{Mode: config.AuthModeOpen, ProtectReads: true}))
	anon := RolesFor(false)
	if !p.Allowed(anon, PermIncidentsView) || !p.Allowed(anon, PermIncidentsManage) {
		t.Fatalf("open mode should let anyone read and write")
	}
}

func TestUnknownPermissionAndRoleAreDenied(t *testing.T) {
	p := NewPolicy(DefaultRoles(config.AuthConfig{Mode: config.AuthModeOpen}))
	if p.Allowed([]string{"auditor"}, PermIncidentsView) {
		t.Fatalf("unknown role allowed")
	}
	if p.Allowed(RolesFor(true), Permission("incidents")) {
		t.Fatalf("malformed permission allowed")
	}
	if p.Allowed(nil, PermIncidentsView) {
		t.Fatalf("no roles allowed")
	}
}

func TestLoadRejectsMalformedPermission(t *testing.T) {
	p := NewPolicy(nil)
	if err := p.Load([]Role{{Name: "x", Permissions: []Permission{"broken"}}}); err == nil {
		t.Fatalf("expected error for malformed permission")
	}
}

func TestPermissionsForRoles(t *testing.T) {
	p := NewPolicy(DefaultRoles(config.AuthConfig{Mode: config.AuthModeAdmin}))
	got := p.PermissionsForRoles([]string{RoleAdmin, RoleAnonymous})
	if len(got) != 2 || got[0] != PermIncidentsManage || got[1] != PermIncidentsView {
		t.Fatalf("unexpected permissions %v", got)
	}
}
