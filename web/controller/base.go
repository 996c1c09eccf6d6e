// Package controller provides the HTTP handlers of the admin console: the login
// and user table pages and the JSON API behind the authorization toggles.
package controller

import (
	"net/http"

	"github.com/authpanel/authpanel/caching"
	"github.com/authpanel/authpanel/web/console"
	"github.com/authpanel/authpanel/web/locale"
	"github.com/authpanel/authpanel/web/service"
	"github.com/authpanel/authpanel/web/session"

	"github.com/gin-gonic/gin"
)

// BaseController provides common functionality for all controllers, including authentication checks.
type BaseController struct {
	api         console.AdminAPI
	directories *caching.Cache
	homeURL     string
}

func NewBaseController(api console.AdminAPI, directories *caching.Cache, homeURL string) BaseController {
	return BaseController{api: api, directories: directories, homeURL: homeURL}
}

// checkLogin is a middleware that verifies user authentication and handles unauthorized access.
func (a *BaseController) checkLogin(c *gin.Context) {
	if !session.IsLogin(c) {
		if isAjax(c) || isJSON(c) {
			pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "pages.login.loginAgain"))
		} else {
			c.Redirect(http.StatusTemporaryRedirect, c.GetString("base_path"))
		}
		c.Abort()
	} else {
		c.Next()
	}
}

// consoleFor builds the state machine for the browser behind c. Logging out
// redirects the browser to the home URL.
func (a *BaseController) consoleFor(c *gin.Context) *console.Controller {
	nav := console.NavigatorFunc(func(location string) {
		c.Redirect(http.StatusFound, location)
	})
	return console.NewController(
		session.NewCookieStore(c),
		a.api,
		a.directories.DirectoryFor(session.ConsoleID(c)),
		nav,
		console.WithHome(a.homeURL),
		console.WithRecorder(service.NewAuditRecorder(getRemoteIp(c))),
	)
}

// I18nWeb retrieves an internationalized message for the web interface based on the current locale.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	return locale.I18n(c, name, params...)
}
