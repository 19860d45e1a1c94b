package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"olog/internal/auth"
	"olog/internal/config"
	"olog/internal/credentials"
	"olog/internal/logging"
	"olog/internal/olog"
	"olog/internal/screenshot"
)

// Define common errors for the application layer.
var (
	ErrUsage           = errors.New("usage error")
	ErrConfigNotFound  = errors.New("configuration file not found")
	ErrMissingURL      = errors.New("the URL must be specified")
	ErrMissingLogbooks = errors.New("at least one logbook must be specified")
	ErrMissingUsername = errors.New("you must specify a username")
)

// --- Interfaces for Testability ---

// configLoader reads the config files and returns the defaults together
// with the files actually read.
type configLoader interface {
	Load(paths ...string) (*config.Defaults, []string, error)
}

// submitter sends one entry to the service.
type submitter interface {
	Log(ctx context.Context, entry *olog.LogEntry) (*olog.Result, error)
}

type submitterFactory interface {
	New(ctx context.Context, url string, creds auth.Credentials, cfg config.ClientConfig) (submitter, error)
}

type capturer interface {
	Capture(ctx context.Context, mode screenshot.Mode) ([]byte, error)
}

type capturerFactory interface {
	New(command string, screenArgs, regionArgs []string) capturer
}

// --- Default Implementations ---

type defaultConfigLoader struct{}

func (l *defaultConfigLoader) Load(paths ...string) (*config.Defaults, []string, error) {
	loader, err := config.Load(paths...)
	if err != nil {
		return nil, nil, err
	}
	defaults, err := loader.Defaults()
	if err != nil {
		return nil, loader.Files(), err
	}
	return defaults, loader.Files(), nil
}

type defaultSubmitterFactory struct{}

func (f *defaultSubmitterFactory) New(ctx context.Context, url string, creds auth.Credentials, cfg config.ClientConfig) (submitter, error) {
	client, err := olog.NewClient(ctx, url, creds, olog.WithClientConfig(cfg))
	if err != nil {
		return nil, err
	}
	return client, nil
}

type defaultCapturerFactory struct{}

func (f *defaultCapturerFactory) New(command string, screenArgs, regionArgs []string) capturer {
	c := screenshot.NewCapturer(command)
	c.ScreenArgs = screenArgs
	c.RegionArgs = regionArgs
	return c
}

func currentUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// --- AppRunner ---

// AppRunner encapsulates the application's execution logic and dependencies.
type AppRunner struct {
	configLoader     configLoader
	configPaths      []string
	submitterFactory submitterFactory
	capturerFactory  capturerFactory
	keyring          credentials.KeyringGetter
	prompter         credentials.Prompter
	currentUser      func() (string, error)
	stdin            io.Reader
	stdout           io.Writer
	stderr           io.Writer
}

// AppRunnerOpts allows configuring the AppRunner's dependencies. Zero
// fields get the real implementations.
type AppRunnerOpts struct {
	ConfigLoader     configLoader
	ConfigPaths      []string
	SubmitterFactory submitterFactory
	CapturerFactory  capturerFactory
	Keyring          credentials.KeyringGetter
	Prompter         credentials.Prompter
	CurrentUser      func() (string, error)
	Stdin            io.Reader
	Stdout           io.Writer
	Stderr           io.Writer
}

// NewAppRunner creates a new instance of the application runner with default dependencies.
func NewAppRunner() *AppRunner {
	return NewAppRunnerWithOpts(AppRunnerOpts{})
}

// NewAppRunnerWithOpts creates a new AppRunner allowing dependency injection.
func NewAppRunnerWithOpts(opts AppRunnerOpts) *AppRunner {
	a := &AppRunner{
		configLoader:     opts.ConfigLoader,
		configPaths:      opts.ConfigPaths,
		submitterFactory: opts.SubmitterFactory,
		capturerFactory:  opts.CapturerFactory,
		keyring:          opts.Keyring,
		prompter:         opts.Prompter,
		currentUser:      opts.CurrentUser,
		stdin:            opts.Stdin,
		stdout:           opts.Stdout,
		stderr:           opts.Stderr,
	}
	if a.configLoader == nil {
		a.configLoader = &defaultConfigLoader{}
	}
	if a.configPaths == nil {
		a.configPaths = config.DefaultPaths()
	}
	if a.submitterFactory == nil {
		a.submitterFactory = &defaultSubmitterFactory{}
	}
	if a.capturerFactory == nil {
		a.capturerFactory = &defaultCapturerFactory{}
	}
	if a.currentUser == nil {
		a.currentUser = currentUsername
	}
	if a.stdin == nil {
		a.stdin = os.Stdin
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	if a.prompter == nil {
		a.prompter = credentials.NewTerminalPrompter(a.stderr)
	}
	return a
}

// options holds the parsed command line.
type options struct {
	logbooks   []string
	tags       []string
	attach     []string
	user       string
	file       string
	url        string
	passwd     string
	configPath string
	title      string
	level      string
	screenshot bool
	grab       bool
	verbose    bool
	quiet      bool
	dryRun     bool
}

const longDescription = `Command line utility for making Olog entries.

The entry text is read from stdin, either typed in and ended with a line
containing only -END-, or piped in. Use --file to read it from a file instead.

Several logbooks, tags or attachments may follow their flag, separated by
spaces. Defaults for url, logbooks, username, password and tags are read from
/etc/olog.conf and ~/.olog.conf (section [olog], lists comma separated).

A password is taken from --passwd, the config files or the system keyring,
and asked for on the terminal otherwise.`

const example = `  olog -l Operations -t Data -u swilkins -a ./image.png
  echo "Beam back" | olog -l Operations -q`

func (a *AppRunner) newCommand(opts *options, run func(cmd *cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "olog",
		Short:         "Create an Olog entry",
		Long:          longDescription,
		Example:       example,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringArrayVarP(&opts.logbooks, "logbooks", "l", nil, "Logbook name(s)")
	flags.StringArrayVarP(&opts.tags, "tags", "t", nil, "Tag name(s)")
	flags.StringVarP(&opts.user, "user", "u", "", "Username for Olog access (default: config, then current user)")
	flags.StringVarP(&opts.file, "file", "f", "", "File containing the entry text")
	flags.StringVar(&opts.url, "url", "", "Base URL of the Olog service")
	flags.StringArrayVarP(&opts.attach, "attach", "a", nil, "File(s) to attach")
	flags.StringVarP(&opts.passwd, "passwd", "p", "", "Password for Olog access (visible to other users)")
	flags.BoolVarP(&opts.screenshot, "screenshot", "s", false, "Attach a screenshot of the whole screen")
	flags.BoolVarP(&opts.grab, "grab", "g", false, "Select an area of the screen and attach it")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress all output")
	flags.StringVar(&opts.title, "title", "", "Entry title (default: first line of the text)")
	flags.StringVar(&opts.level, "level", olog.DefaultLevel, "Entry level")
	flags.StringVar(&opts.configPath, "config", "", "Additional config file, read last")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Print the entry instead of submitting it")
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "grap" {
			name = "grab"
		}
		return pflag.NormalizedName(name)
	})

	cmd.MarkFlagsMutuallyExclusive("screenshot", "grab")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	return cmd
}

// Usage prints the command-line help information to the specified writer.
func (a *AppRunner) Usage(writer io.Writer) {
	fmt.Fprint(writer, a.newCommand(&options{}, nil).UsageString())
}

// Abort restores the terminal if a password prompt is in progress. It is
// called from the signal handler while Run may still be blocked.
func (a *AppRunner) Abort() {
	a.prompter.Restore()
}

// Run parses args and creates one log entry. Errors caused by the command
// line wrap ErrUsage.
func (a *AppRunner) Run(ctx context.Context, args []string) error {
	opts := &options{}
	started := false
	cmd := a.newCommand(opts, func(cmd *cobra.Command) error {
		started = true
		return a.run(cmd.Context(), cmd.Flags(), opts)
	})
	cmd.SetArgs(normalizeArgs(args))

	err := cmd.ExecuteContext(ctx)
	if err != nil && !started {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return err
}

// settings is the command line merged over the config defaults.
type settings struct {
	url      string
	user     string
	logbooks []string
	tags     []string
	defaults *config.Defaults
}

func (a *AppRunner) resolveSettings(flags *pflag.FlagSet, opts *options, defaults *config.Defaults) (*settings, error) {
	s := &settings{
		url:      defaults.URL,
		user:     defaults.Username,
		logbooks: defaults.Logbooks,
		tags:     defaults.Tags,
		defaults: defaults,
	}
	if flags.Changed("url") {
		s.url = opts.url
	}
	if flags.Changed("logbooks") {
		s.logbooks = cleanValues(opts.logbooks)
	}
	if flags.Changed("tags") {
		s.tags = cleanValues(opts.tags)
	}
	if flags.Changed("user") {
		s.user = opts.user
	} else if s.user == "" {
		if name, err := a.currentUser(); err == nil {
			s.user = name
		} else {
			logging.Logf(logging.Debug, "Could not determine current user: %v", err)
		}
	}

	switch {
	case s.url == "":
		return nil, fmt.Errorf("%w: %w", ErrUsage, ErrMissingURL)
	case len(s.logbooks) == 0:
		return nil, fmt.Errorf("%w: %w", ErrUsage, ErrMissingLogbooks)
	case s.user == "":
		return nil, fmt.Errorf("%w: %w", ErrUsage, ErrMissingUsername)
	}
	if err := config.ValidateURL(s.url); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return s, nil
}

func (a *AppRunner) run(ctx context.Context, flags *pflag.FlagSet, opts *options) error {
	logging.SetLevel(logging.LevelFor(opts.verbose, opts.quiet))

	paths := append([]string(nil), a.configPaths...)
	if opts.configPath != "" {
		if _, err := os.Stat(opts.configPath); err != nil {
			return fmt.Errorf("%w: '%s': %v", ErrConfigNotFound, opts.configPath, err)
		}
		paths = append(paths, opts.configPath)
	}
	defaults, files, err := a.configLoader.Load(paths...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.verbose {
		for _, f := range files {
			fmt.Fprintf(a.stdout, "Reading config from %s\n", f)
		}
	}

	s, err := a.resolveSettings(flags, opts, defaults)
	if err != nil {
		return err
	}
	logging.Logf(logging.Debug, "Using URL %s, user %s, logbooks %v, tags %v", s.url, s.user, s.logbooks, s.tags)

	attachments, err := readAttachments(cleanValues(opts.attach))
	if err != nil {
		return err
	}
	if opts.screenshot || opts.grab {
		mode := screenshot.WholeScreen
		if opts.grab {
			mode = screenshot.Region
		}
		shot, err := a.captureScreenshot(ctx, defaults, mode, opts.quiet)
		if err != nil {
			return err
		}
		if shot != nil {
			attachments = append(attachments, *shot)
		}
	}

	text, err := a.readBody(opts.file, opts.quiet)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entry, err := olog.NewLogEntry(text, s.user, s.logbooks,
		olog.WithTags(s.tags...),
		olog.WithAttachments(attachments...),
		olog.WithTitle(opts.title),
		olog.WithLevel(opts.level),
	)
	if err != nil {
		return err
	}

	if opts.dryRun {
		return olog.WriteSummary(a.stdout, entry)
	}

	sources := []credentials.Source{}
	if flags.Changed("passwd") {
		sources = append(sources, credentials.Static("command line", opts.passwd))
	}
	sources = append(sources,
		credentials.Static("config", defaults.Password),
		credentials.Keyring(defaults.KeyringService, a.keyring),
		credentials.Prompt(a.prompter),
	)
	password, err := credentials.NewResolver(sources...).Resolve(ctx, s.user)
	if err != nil {
		return err
	}

	client, err := a.submitterFactory.New(ctx, s.url, auth.Credentials{Username: s.user, Password: password}, defaults.Client)
	if err != nil {
		return err
	}
	result, err := client.Log(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create log entry: %w", err)
	}
	if result.ID != "" {
		logging.Logf(logging.Debug, "Created log entry %s", result.ID)
	} else {
		logging.Logf(logging.Debug, "Created log entry (HTTP %d)", result.StatusCode)
	}
	return nil
}
