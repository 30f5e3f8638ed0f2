package main

import (
	"net/http"

	"guilance/src/boot"
	"guilance/src/types"

	"github.com/gin-gonic/gin"
)

func registrationHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.
		POST("/events/:id/register", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			registration, err := app.Registrations.Register(ctx.Request.Context(), params.ID, ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, registration)
		}).
		GET("/registrations", func(ctx *gin.Context) {
			registrations, err := app.Registrations.ListForUser(ctx.Request.Context(), ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"registrations": registrations})
		}).
		DELETE("/registrations/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := app.Registrations.Cancel(ctx.Request.Context(), params.ID, ctx.GetUint("id")); err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/registrations/:id/ticket", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := app.Tickets.Issue(ctx.Request.Context(), params.ID, ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			if ticket.URL == "" {
				ctx.File(ticket.Path)
				return
			}
			ctx.JSON(http.StatusOK, ticket)
		})
	return g
}
