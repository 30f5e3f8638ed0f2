package main

import (
	"net/http"

	"guilance/src/boot"
	"guilance/src/services"
	"guilance/src/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// abortWithError writes {"error": ...} with the status the service error carries.
func abortWithError(ctx *gin.Context, err error) {
	status := services.StatusCode(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": services.PublicMessage(err)})
}

func paymentHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.
		POST("/payments/create", func(ctx *gin.Context) {
			var body types.CreatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			out, err := app.Checkout.Initiate(ctx.Request.Context(), services.InitiateInput{
				UserID:       ctx.GetUint("id"),
				EventID:      body.EventID,
				Description:  body.Description,
				DiscountCode: body.DiscountCode,
				Mobile:       body.Mobile,
				Email:        body.Email,
			})
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, out)
		}).
		GET("/payments", func(ctx *gin.Context) {
			payments, err := app.Ledger.ListForUser(ctx.Request.Context(), ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"payments": payments})
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := app.Ledger.FindForUser(ctx.Request.Context(), params.ID, ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, payment)
		})
	return g
}

// paymentCallbackRoute is public: the gateway redirects the buyer's browser here.
func paymentCallbackRoute(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.GET("/payments/callback", func(ctx *gin.Context) {
		var query types.PaymentCallbackQuery
		if err := ctx.ShouldBindQuery(&query); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := app.Checkout.Finalize(ctx.Request.Context(), services.FinalizeInput{
			Authority: query.Authority,
			Status:    query.Status,
			RawQuery:  ctx.Request.URL.Query(),
		})
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.Redirect(http.StatusFound, app.Checkout.RedirectURL(result))
	})
	return g
}
