// Package authz is the server-side capability policy. Callers pass the
// authenticated actor; UI visibility is never consulted.
package authz

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleCashier Role = "CASHIER"
)

// ParseRole normalizes a role claim. Unknown roles are returned as-is and hold
// no capabilities.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

type Capability string

const (
	CapCatalogRead      Capability = "catalog:read"
	CapCategoryWrite    Capability = "category:write"
	CapSupplierWrite    Capability = "supplier:write"
	CapProductWrite     Capability = "product:write"
	CapStockAdjust      Capability = "stock:adjust"
	CapStockRead        Capability = "stock:read"
	CapPOCreate         Capability = "po:create"
	CapPORead           Capability = "po:read"
	CapPOReceive        Capability = "po:receive"
	CapSaleRecord       Capability = "sale:record"
	CapSaleRead         Capability = "sale:read"
	CapNotificationRead Capability = "notification:read"
	CapNotificationAck  Capability = "notification:ack"
	CapReportRead       Capability = "report:read"
)

// everyone is granted to every known role.
var everyone = []Capability{
	CapCatalogRead, CapStockRead, CapPORead, CapSaleRecord, CapSaleRead,
	CapNotificationRead, CapNotificationAck, CapReportRead,
}

var policy = map[Role]map[Capability]bool{
	RoleAdmin: grant(CapCategoryWrite, CapSupplierWrite, CapProductWrite, CapStockAdjust,
		CapPOCreate, CapPOReceive),
	RoleManager: grant(CapProductWrite, CapStockAdjust, CapPOCreate, CapPOReceive),
	RoleCashier: grant(),
}

func grant(caps ...Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps)+len(everyone))
	for _, c := range everyone {
		m[c] = true
	}
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Actor is an already-authenticated caller.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) Can(c Capability) bool {
	return policy[a.Role][c]
}

// Require returns an Unauthorized error when the actor lacks c.
func Require(a Actor, c Capability) error {
	if a.Can(c) {
		return nil
	}
	return apperr.Unauthorized("role %q is not allowed to %s", string(a.Role), c)
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
