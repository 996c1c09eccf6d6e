package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/authpanel/authpanel/config"
	"github.com/authpanel/authpanel/database"
	"github.com/authpanel/authpanel/logger"
	"github.com/authpanel/authpanel/web"
	"github.com/authpanel/authpanel/web/console"
	"github.com/authpanel/authpanel/web/service"
	"github.com/authpanel/authpanel/web/session"

	"github.com/joho/godotenv"
	"github.com/op/go-logging"
	"github.com/spf13/cobra"
)

func runWebServer() error {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	level, err := logger.LevelFromConfig(config.GetLogLevel())
	if err != nil {
		return err
	}
	logger.InitLogger(level)
	defer logger.CloseLogger()

	if err := database.InitDB(config.GetDBPath()); err != nil {
		return err
	}
	defer database.CloseDB()

	server := web.NewServer()
	if err := server.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("Received SIGHUP signal. Restarting server...")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			if err := server.Start(); err != nil {
				return err
			}
		default:
			logger.Info("Shutting down server...")
			return server.Stop()
		}
	}
}

// cli bundles what the one-shot commands share: the token file, the admin API
// and where output goes.
type cli struct {
	out   io.Writer
	store *session.FileStore
	api   console.AdminAPI
}

func newCLI(out io.Writer) *cli {
	return &cli{
		out:   out,
		store: session.NewFileStore(config.GetStateFolder()),
		api:   service.NewAdminAPIService(config.GetAPIURL(), config.GetAPITimeout()),
	}
}

// controller opens the audit database when it can; the CLI works without it.
func (c *cli) controller() (*console.Controller, func()) {
	closeDB := func() {}
	if err := database.InitDB(config.GetDBPath()); err != nil {
		logger.Debug("audit trail disabled:", err)
	} else {
		closeDB = func() { _ = database.CloseDB() }
	}
	nav := console.NavigatorFunc(func(location string) {
		fmt.Fprintln(c.out, "home:", location)
	})
	ctl := console.NewController(c.store, c.api, nil, nav,
		console.WithHome(config.GetHomeURL()),
		console.WithRecorder(service.NewAuditRecorder("cli")),
	)
	return ctl, closeDB
}

func (c *cli) login(ctx context.Context, email, password string) error {
	ctl, done := c.controller()
	defer done()

	view := ctl.Login(ctx, console.Credentials{Email: email, Password: password})
	if !view.IsAuthorizedTable() {
		if errors.Is(ctl.Err(), console.ErrSessionExpired) {
			return ctl.Err()
		}
		return errors.New(view.Error)
	}
	fmt.Fprintln(c.out, "login success")
	return c.printUsers(view.Users)
}

func (c *cli) users(ctx context.Context) error {
	ctl, done := c.controller()
	defer done()

	view := ctl.Start(ctx)
	if !view.IsAuthorizedTable() {
		if err := ctl.Err(); err != nil {
			return err
		}
		return console.ErrNotLoggedIn
	}
	return c.printUsers(view.Users)
}

func (c *cli) authorize(ctx context.Context, id string, value bool) error {
	userID, err := console.ParseUserID(id)
	if err != nil {
		return err
	}
	ctl, done := c.controller()
	defer done()

	if !ctl.Resume() {
		return console.ErrNotLoggedIn
	}
	if err := ctl.SetAuthorization(ctx, userID, value); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "user %s authorized=%v\n", userID, value)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	ctl, done := c.controller()
	defer done()

	ctl.Logout(ctx)
	fmt.Fprintln(c.out, "logout success")
	return nil
}

func (c *cli) audit(limit int, action string) error {
	if err := database.InitDB(config.GetDBPath()); err != nil {
		return err
	}
	defer database.CloseDB()

	auditService := service.AuditLogService{}
	logs, err := auditService.GetAuditLogs(limit, action)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tRESOURCE\tSUCCESS\tIP\tDETAIL")
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n",
			l.CreatedAt.Format("2006-01-02 15:04:05"), l.Action, l.ResourceID, l.Success, l.IP, l.Detail)
	}
	return w.Flush()
}

func (c *cli) printUsers(users []console.UserRecord) error {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tAUTHORIZED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", u.ID, u.Name, u.Email, u.IsAuthorized)
	}
	return w.Flush()
}

func showSetting(out io.Writer) {
	fmt.Fprintln(out, "current settings as follows:")
	fmt.Fprintln(out, "version:", config.GetVersion())
	fmt.Fprintln(out, "api url:", config.GetAPIURL())
	fmt.Fprintln(out, "api timeout:", config.GetAPITimeout())
	fmt.Fprintln(out, "listen:", config.GetListen())
	fmt.Fprintln(out, "port:", config.GetPort())
	fmt.Fprintln(out, "base path:", config.GetBasePath())
	fmt.Fprintln(out, "home url:", config.GetHomeURL())
	fmt.Fprintln(out, "session max age (minutes):", config.GetSessionMaxAge())
	fmt.Fprintln(out, "db path:", config.GetDBPath())
	fmt.Fprintln(out, "state folder:", config.GetStateFolder())
	if config.GetSessionSecret() == "" {
		fmt.Fprintln(out, "session secret: not set")
	} else {
		fmt.Fprintln(out, "session secret: set")
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           config.GetName(),
		Short:         "Admin console for user authorization",
		Version:       config.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file to load")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWebServer()
		},
	}

	// the one-shot commands log warnings only, their output is the result
	quiet := func(cmd *cobra.Command, args []string) error {
		if config.IsDebug() {
			logger.InitStderrLogger(logging.DEBUG)
		} else {
			logger.InitStderrLogger(logging.WARNING)
		}
		return nil
	}

	loginCmd := &cobra.Command{
		Use:     "login",
		Short:   "Log in to the admin API and keep the token",
		PreRunE: quiet,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("AUTHPANEL_PASSWORD")
			}
			return newCLI(cmd.OutOrStdout()).login(cmd.Context(), email, password)
		},
	}
	loginCmd.Flags().String("email", "", "admin email")
	loginCmd.Flags().String("password", "", "admin password (or AUTHPANEL_PASSWORD)")
	_ = loginCmd.MarkFlagRequired("email")

	usersCmd := &cobra.Command{
		Use:     "users",
		Short:   "List users",
		PreRunE: quiet,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCLI(cmd.OutOrStdout()).users(cmd.Context())
		},
	}

	authorizeCmd := &cobra.Command{
		Use:     "authorize",
		Short:   "Set the authorization flag of a user",
		PreRunE: quiet,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			value, _ := cmd.Flags().GetBool("value")
			return newCLI(cmd.OutOrStdout()).authorize(cmd.Context(), id, value)
		},
	}
	authorizeCmd.Flags().String("id", "", "user id")
	authorizeCmd.Flags().Bool("value", true, "authorization value")
	_ = authorizeCmd.MarkFlagRequired("id")

	logoutCmd := &cobra.Command{
		Use:     "logout",
		Short:   "Forget the stored token",
		PreRunE: quiet,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCLI(cmd.OutOrStdout()).logout(cmd.Context())
		},
	}

	auditCmd := &cobra.Command{
		Use:     "audit",
		Short:   "Show the audit trail",
		PreRunE: quiet,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			action, _ := cmd.Flags().GetString("action")
			return newCLI(cmd.OutOrStdout()).audit(limit, action)
		},
	}
	auditCmd.Flags().Int("limit", 50, "number of entries")
	auditCmd.Flags().String("action", "", "only show this action (login, logout, session_expired, set_authorization)")

	settingCmd := &cobra.Command{
		Use:   "setting",
		Short: "Inspect settings",
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting(cmd.OutOrStdout())
		},
	}
	settingCmd.AddCommand(showCmd)

	rootCmd.AddCommand(runCmd, loginCmd, usersCmd, authorizeCmd, logoutCmd, auditCmd, settingCmd)
	return rootCmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
