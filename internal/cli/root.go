// Package cli is the taskclient command line. Without a subcommand it
// starts the terminal UI.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/99designs/keyring"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/taskclient/internal/api"
	"github.com/nhle/taskclient/internal/credential"
	"github.com/nhle/taskclient/internal/logging"
	"github.com/nhle/taskclient/internal/message"
	"github.com/nhle/taskclient/internal/model"
	"github.com/nhle/taskclient/internal/store"
	"github.com/nhle/taskclient/internal/tasks"
)

// Version is set at build time.
var Version = "dev"

// Env holds what tests replace. The zero Env uses the real system.
type Env struct {
	// Keyring overrides the configured system keyring.
	Keyring keyring.Keyring

	Stdin io.Reader
	Now   func() time.Time
}

// runtime is everything a command needs, built once per invocation.
type runtime struct {
	cfgPath string
	cfg     *model.AppConfig
	logger  *zap.Logger
	creds   *credential.Store
	client  *api.Client
	catalog *message.Catalog
	now     func() time.Time
	stdin   io.Reader
	stdout  io.Writer
	flush   func()
}

// Execute runs the command line with args and returns the exit code.
func Execute(args []string, stdout, stderr io.Writer, env *Env) int {
	rt := &runtime{}
	root := newRootCmd(rt, stdout, env)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if rt.flush != nil {
		rt.flush()
	}
	if err == nil {
		return 0
	}

	_, _ = fmt.Fprintln(stderr, "Error:", rt.describe(err))
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Kind == api.KindUnauthenticated && !isSignIn(apiErr) {
		_, _ = fmt.Fprintln(stderr, "Run `taskclient login` to sign in.")
	}
	return 1
}

// describe turns err into a line for the user. A rejected sign-in shows
// the server's reason rather than the expired-session text.
func (rt *runtime) describe(err error) string {
	var apiErr *api.Error
	if rt.catalog == nil || !errors.As(err, &apiErr) {
		return err.Error()
	}
	if isSignIn(apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return rt.catalog.Describe(err)
}

func isSignIn(err *api.Error) bool {
	return err.Op == "login" || err.Op == "register"
}

func newRootCmd(rt *runtime, stdout io.Writer, env *Env) *cobra.Command {
	if env == nil {
		env = &Env{}
	}

	var (
		configPath string
		envFile    string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:           "taskclient",
		Short:         "A client for the task service",
		Long:          "taskclient signs in to the task service and lets you list, add, update and delete tasks, from the terminal UI or from scripts.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.init(configPath, envFile, verbose, isTUI(cmd), stdout, env)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), rt)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "config file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of environment overrides, ignored when missing")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	cmd.AddCommand(
		newTUICmd(rt),
		newLoginCmd(rt),
		newRegisterCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newListCmd(rt),
		newAddCmd(rt),
		newUpdateCmd(rt),
		newStatusCmd(rt, "done", "Mark a task completed", model.StatusCompleted),
		newStatusCmd(rt, "reopen", "Mark a task in progress", model.StatusInProgress),
		newDeleteCmd(rt),
		newConfigCmd(rt),
	)
	return cmd
}

func isTUI(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

// init loads .env and the config file, then opens logging, the
// credential store and the API client.
func (rt *runtime) init(configPath, envFile string, verbose, tui bool, stdout io.Writer, env *Env) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.cfgPath = configPath

	out := logging.ToFile
	logCfg := cfg.Log
	if verbose && !tui {
		out = logging.ToStderr
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg, out)
	if err != nil {
		return err
	}
	rt.logger = logger
	rt.flush = logging.Install(logger)

	catalog, err := message.New(cfg.Display.Language)
	if err != nil {
		return err
	}
	rt.catalog = catalog

	if env.Keyring != nil {
		rt.creds, err = credential.New(env.Keyring)
	} else {
		rt.creds, err = credential.Open(cfg.Credential)
	}
	if err != nil {
		return err
	}

	rt.now = time.Now
	if env.Now != nil {
		rt.now = env.Now
	}
	rt.stdin = os.Stdin
	if env.Stdin != nil {
		rt.stdin = env.Stdin
	}
	rt.stdout = stdout

	rt.client = api.NewClient(cfg.API.BaseURL, rt.creds,
		api.WithTimeout(time.Duration(cfg.API.TimeoutSec)*time.Second),
		api.WithLogger(logger.Named("api")),
		api.WithClock(rt.now),
	)
	return nil
}

// openCache opens the snapshot cache when enabled. A cache that cannot
// be opened is logged and skipped.
func (rt *runtime) openCache() store.SnapshotStore {
	if !rt.cfg.Cache.Enabled || rt.cfg.Cache.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(rt.cfg.Cache.Path), 0o700); err != nil {
		rt.logger.Warn("creating cache directory", zap.Error(err))
		return nil
	}
	s, err := store.NewSQLiteStore(rt.cfg.Cache.Path)
	if err != nil {
		rt.logger.Warn("opening task cache", zap.String("path", rt.cfg.Cache.Path), zap.Error(err))
		return nil
	}
	return s
}

// controller builds a task controller for the signed-in account.
func (rt *runtime) controller(cache store.SnapshotStore) *tasks.Controller {
	opts := []tasks.Option{
		tasks.WithLogger(rt.logger.Named("tasks")),
		tasks.WithClock(rt.now),
	}
	if cache != nil {
		owner := store.DefaultOwner
		if cred, ok := rt.creds.Get(); ok {
			owner = cred.Owner()
		}
		opts = append(opts, tasks.WithCache(cache, owner))
	}
	return tasks.NewController(rt.client, opts...)
}

// handleAuthFailure drops a credential the service rejected.
func (rt *runtime) handleAuthFailure(err error) error {
	if !api.IsUnauthenticated(err) {
		return err
	}
	if _, ok := rt.creds.Get(); ok {
		if clearErr := rt.creds.Clear(); clearErr != nil {
			rt.logger.Error("clearing rejected credential", zap.Error(clearErr))
		}
	}
	return err
}
