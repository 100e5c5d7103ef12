// Package router holds the HTTP routing table. Every endpoint the server
// exposes is listed in Routes, so the surface can be read (and tested)
// without starting Fiber.
package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/membership/backend/internal/handlers"
	"github.com/membership/backend/internal/middleware"
)

type Route struct {
	Method   string
	Path     string
	Handlers []fiber.Handler
}

type Dependencies struct {
	Auth         *handlers.AuthHandler
	Branches     *handlers.BranchesHandler
	Members      *handlers.MembersHandler
	Groups       *handlers.GroupsHandler
	GroupMembers *handlers.GroupMembersHandler
	Audit        *handlers.AuditHandler
	Middleware   *middleware.AuthMiddleware
}

func Routes(d Dependencies) []Route {
	public := func(method, path string, h fiber.Handler) Route {
		return Route{Method: method, Path: path, Handlers: []fiber.Handler{h}}
	}
	authed := func(method, path string, h fiber.Handler) Route {
		return Route{Method: method, Path: path, Handlers: []fiber.Handler{d.Middleware.RequireAuth, h}}
	}
	branch := func(method, path string, h fiber.Handler) Route {
		return Route{
			Method:   method,
			Path:     "/branches/:branchId" + path,
			Handlers: []fiber.Handler{d.Middleware.RequireAuth, middleware.RequireBranchAccess, h},
		}
	}

	return []Route{
		public(fiber.MethodGet, "/health", handlers.Health),
		public(fiber.MethodPost, "/auth/login", d.Auth.Login),
		authed(fiber.MethodGet, "/auth/me", d.Auth.Me),
		public(fiber.MethodGet, "/branches", d.Branches.List),
		public(fiber.MethodPost, "/signup", d.Members.Signup),

		branch(fiber.MethodGet, "/members", d.Members.List),
		branch(fiber.MethodGet, "/audit-log", d.Audit.ExportBranchLog),

		branch(fiber.MethodGet, "/groups", d.Groups.List),
		branch(fiber.MethodPost, "/groups", d.Groups.Create),
		branch(fiber.MethodGet, "/groups/:groupId", d.Groups.Get),
		branch(fiber.MethodPut, "/groups/:groupId", d.Groups.Update),
		branch(fiber.MethodDelete, "/groups/:groupId", d.Groups.Delete),

		branch(fiber.MethodGet, "/groups/:groupId/members", d.GroupMembers.List),
		branch(fiber.MethodPost, "/groups/:groupId/members", d.GroupMembers.AddMembers),
		branch(fiber.MethodDelete, "/groups/:groupId/members/:memberId", d.GroupMembers.RemoveMember),
	}
}

func Mount(r fiber.Router, routes []Route) {
	for _, route := range routes {
		r.Add(route.Method, route.Path, route.Handlers...)
	}
}
