package main

import (
	"net/http"

	"guilance/src/boot"
	"guilance/src/types"

	"github.com/gin-gonic/gin"
)

func discountHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.POST("/discounts/preview", func(ctx *gin.Context) {
		var body types.DiscountPreviewRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		quote, err := app.Discounts.Preview(ctx.Request.Context(), body.EventID, ctx.GetUint("id"), body.Code)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, quote)
	})
	return g
}
