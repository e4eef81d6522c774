// Package http holds the contract between the router and the domain modules.
package http

import "github.com/gin-gonic/gin"

// Module is a bounded context that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is handed to every module during route registration.
// Protected requires a valid bearer token and exposes the caller identity
// through httpkit.GetIdentity.
type RouterContext struct {
	V1        *gin.RouterGroup
	Protected *gin.RouterGroup
}
