package controller

import (
	"net/http"

	"github.com/authpanel/authpanel/web/console"

	"github.com/gin-gonic/gin"
)

// APIController serves the JSON routes under panel/api.
type APIController struct {
	BaseController
}

func NewAPIController(g *gin.RouterGroup, base BaseController) *APIController {
	a := &APIController{BaseController: base}
	a.initRouter(g)
	return a
}

func (a *APIController) initRouter(g *gin.RouterGroup) {
	api := g.Group("/panel/api")
	api.Use(a.checkLogin)

	api.GET("/users", a.users)
	api.POST("/users/:id/authorization", a.setAuthorization)
}

type authorizationForm struct {
	IsAuthorized *bool `json:"is_authorized" form:"is_authorized"`
}

// users reloads the directory and returns it. A rejected token ends the session.
func (a *APIController) users(c *gin.Context) {
	ctl := a.consoleFor(c)
	if !ctl.Resume() {
		pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "pages.login.loginAgain"))
		return
	}
	view := ctl.Refresh(c.Request.Context())
	if !view.IsAuthorizedTable() {
		pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "pages.login.loginAgain"))
		return
	}
	jsonObj(c, view.Users, nil)
}

func (a *APIController) setAuthorization(c *gin.Context) {
	id, err := console.ParseUserID(c.Param("id"))
	if err != nil {
		pureJsonMsg(c, http.StatusBadRequest, false, err.Error())
		return
	}
	var form authorizationForm
	if err := c.ShouldBind(&form); err != nil || form.IsAuthorized == nil {
		pureJsonMsg(c, http.StatusBadRequest, false, "is_authorized is required")
		return
	}

	ctl := a.consoleFor(c)
	if !ctl.Resume() {
		pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "pages.login.loginAgain"))
		return
	}
	err = ctl.SetAuthorization(c.Request.Context(), id, *form.IsAuthorized)

	if !isAjax(c) && !isJSON(c) {
		c.Redirect(http.StatusSeeOther, c.GetString("base_path"))
		return
	}
	if err != nil {
		jsonMsg(c, I18nWeb(c, "pages.users.toggleFailed", "ID=="+id.String()), err)
		return
	}
	jsonObj(c, ctl.View().Users, nil)
}
