// Package navigation serves the sidebar menu and maps dashboard URLs back to
// menu items.
package navigation

import (
	"net/url"
	"strings"

	"github.com/practicehub/practicehub/internal/platform/auth"
)

type Item struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Section string   `json:"section"`
	Route   string   `json:"route"`
	Roles   []string `json:"-"`
}

var (
	clinicalRoles = []string{auth.RoleProvider, auth.RoleNurse, auth.RoleFrontDesk}
	staffRoles    = []string{auth.RoleProvider, auth.RoleNurse, auth.RoleFrontDesk, auth.RoleBiller}
)

// Menu is the full sidebar in display order.
var Menu = []Item{
	{ID: "dashboard", Label: "Dashboard", Section: "main", Route: "/dashboard", Roles: staffRoles},
	{ID: "patients", Label: "Patients", Section: "main", Route: "/patients", Roles: staffRoles},
	{ID: "appointments", Label: "Appointments", Section: "main", Route: "/appointments", Roles: clinicalRoles},
	{ID: "messages", Label: "Messages", Section: "main", Route: "/messages", Roles: staffRoles},
	{ID: "documents", Label: "Documents", Section: "main", Route: "/documents", Roles: clinicalRoles},
	{ID: "billing", Label: "Billing", Section: "billing", Route: "/billing", Roles: []string{auth.RoleBiller}},
	{ID: "practices", Label: "Practices", Section: "setup", Route: "/customer-setup?tab=practices"},
	{ID: "providers", Label: "Providers", Section: "setup", Route: "/customer-setup?tab=providers"},
	{ID: "reports", Label: "Reports", Section: "billing", Route: "/reports", Roles: []string{auth.RoleBiller, auth.RoleProvider}},
	{ID: "settings", Label: "Settings", Section: "setup", Route: "/settings"},
}

// Lookup returns the menu item with id.
func Lookup(id string) (Item, bool) {
	for _, it := range Menu {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Route returns the client route for id, or "" when unknown.
func Route(id string) string {
	it, _ := Lookup(id)
	return it.Route
}

// Access is the set of menu item ids a user may see.
type Access map[string]bool

// RoleDefaults returns the items roles grant without any per-user grants.
// Admins see everything.
func RoleDefaults(roles []string) Access {
	acc := Access{}
	admin := auth.HasRole(roles)
	for _, it := range Menu {
		if admin || auth.HasRole(roles, it.Roles...) {
			acc[it.ID] = true
		}
	}
	return acc
}

// Grant adds ids that name real menu items and ignores the rest.
func (a Access) Grant(ids ...string) {
	for _, id := range ids {
		if _, ok := Lookup(id); ok {
			a[id] = true
		}
	}
}

// Visible returns the menu items in access, in menu order.
func Visible(access Access) []Item {
	out := make([]Item, 0, len(access))
	for _, it := range Menu {
		if access[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// DetectPage returns the id of the item whose route best matches rawURL. A
// longer matching path wins; among items sharing a path the one whose tab
// query matches wins, and a URL without a tab falls to the first tab in
// menu order. It returns "" when nothing matches.
func DetectPage(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	path := strings.TrimSuffix(u.Path, "/")
	if path == "" {
		path = "/"
	}
	tab := u.Query().Get("tab")

	best, bestScore := "", -1
	for _, it := range Menu {
		r, err := url.Parse(it.Route)
		if err != nil {
			continue
		}
		if path != r.Path && !strings.HasPrefix(path, r.Path+"/") {
			continue
		}
		score := len(r.Path) * 4
		switch want := r.Query().Get("tab"); {
		case want == "":
			score++
		case want == tab:
			score += 2
		case tab == "":
		default:
			continue
		}
		if score > bestScore {
			best, bestScore = it.ID, score
		}
	}
	return best
}
