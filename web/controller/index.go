package controller

import (
	"net/http"

	"github.com/authpanel/authpanel/logger"
	"github.com/authpanel/authpanel/web/console"
	"github.com/authpanel/authpanel/web/session"

	"github.com/gin-gonic/gin"
)

// IndexController serves the console page and the login and logout routes.
type IndexController struct {
	BaseController
}

func NewIndexController(g *gin.RouterGroup, base BaseController) *IndexController {
	a := &IndexController{BaseController: base}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/", a.index)
	g.GET("/logout", a.logout)

	g.POST("/login", a.login)
}

// index shows the user table for a stored session and the login form otherwise.
func (a *IndexController) index(c *gin.Context) {
	view := a.consoleFor(c).Start(c.Request.Context())
	a.render(c, view)
}

func (a *IndexController) login(c *gin.Context) {
	var creds console.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		logger.Debug("unable to bind login form:", err)
	}

	view := a.consoleFor(c).Login(c.Request.Context(), creds)
	if view.IsAuthorizedTable() {
		logger.Infof("%s logged in, Ip Address: %s", creds.Email, getRemoteIp(c))
	} else {
		logger.Warningf("failed login for %q, IP: %s", creds.Email, getRemoteIp(c))
	}

	if isAjax(c) {
		if view.IsAuthorizedTable() {
			jsonObj(c, view.Users, nil)
		} else {
			pureJsonMsg(c, http.StatusOK, false, view.Error)
		}
		return
	}
	a.render(c, view)
}

// logout clears the session and drops the browser's directory; the console
// redirects to the home URL.
func (a *IndexController) logout(c *gin.Context) {
	id := session.ConsoleID(c)
	a.consoleFor(c).Logout(c.Request.Context())
	a.directories.Forget(id)
}

func (a *IndexController) render(c *gin.Context, view console.View) {
	if view.IsAuthorizedTable() {
		html(c, "panel.html", "pages.users.title", gin.H{
			"users": view.Users,
		})
		return
	}
	html(c, "login.html", "pages.login.title", gin.H{
		"error": loginError(c, view),
		"email": view.Draft.Email,
	})
}

// loginError translates the failed login message for the page. JSON callers
// get the fixed message.
func loginError(c *gin.Context, view console.View) string {
	if view.Error == console.InvalidCredentialsMessage {
		return I18nWeb(c, "pages.login.invalidCredentials")
	}
	return view.Error
}
