// Command cf-ddns points a Cloudflare DNS record at this host's public address.
//
// It is meant to be run from cron or a systemd timer:
//
//	*/5 * * * *  cf-ddns --domain example.com --subdomain home --silent
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Travis-Britz/cfddns"
	"github.com/Travis-Britz/cfddns/internal/config"
	"github.com/Travis-Britz/cfddns/internal/credentials"
	"github.com/Travis-Britz/cfddns/internal/logging"
	"github.com/Travis-Britz/cfddns/internal/metrics"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitConfig     = 2
	exitValidation = 3
	exitNoAddress  = 4
	exitProvider   = 5
)

type options struct {
	configPath  string
	domain      string
	subdomain   string
	email       string
	token       string
	useNetrc    bool
	content     []string
	cfMode      string
	recordType  string
	ipServices  []string
	interfaces  []string
	logLevel    string
	logFile     string
	keyFile     string
	lockFile    string
	metricsFile string
	interval    time.Duration
	list        bool
	update      bool
	silent      bool
}

type app struct {
	opts   options
	stdout io.Writer
	stderr io.Writer

	started bool // flags parsed and RunE entered
	logged  bool // errors reach the terminal through the logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := a.command()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	code := exitCode(err)
	if !a.started {
		code = exitConfig
	}
	if !a.logged {
		fmt.Fprintf(stderr, "cf-ddns: %s\n", err)
	}
	return code
}

func (a *app) command() *cobra.Command {
	o := &a.opts
	cmd := &cobra.Command{
		Use:   "cf-ddns",
		Short: "CloudFlare Dynamic DNS updater",
		Long: `Keep a CloudFlare DNS record pointed at this host.

The address comes from --content, from the addresses bound to --interface,
or from the first services in --ip-service that answer. The record is only
changed when its content differs.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			return a.run(cmd)
		},
	}

	home, _ := os.UserHomeDir()
	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", config.DefaultPath(), "YAML file with default values for these flags")
	f.StringVar(&o.domain, "domain", "", "CloudFlare account domain (zone); required")
	f.StringVar(&o.email, "email", "", "CloudFlare account email, for the legacy global API key")
	f.BoolVar(&o.useNetrc, "use-netrc", false, "read the email and API key from the "+credentials.NetrcMachine+" entry in ~/.netrc")
	f.StringVar(&o.token, "token", "", "CloudFlare API token (or global API key with --email); $"+config.EnvToken+" or the keyring when omitted")
	f.StringVar(&o.subdomain, "subdomain", "", "DNS record subdomain; the zone itself when omitted")
	f.StringArrayVar(&o.content, "content", nil, "destination address or DNS record content; repeat for more than one")
	f.StringVar(&o.cfMode, "cf-mode", "1", "CloudFlare service mode on(1)/off(0)")
	f.StringVar(&o.recordType, "type", "", "DNS record type ("+joinTypes()+"); inferred from the address when omitted")
	f.StringSliceVar(&o.ipServices, "ip-service", ddns.DefaultServices, "URL(s) to obtain the external IP address from")
	f.StringSliceVar(&o.interfaces, "interface", nil, "publish the addresses of these network interfaces instead of asking an IP service")
	f.StringVar(&o.logLevel, "log-level", "INFO", "logging level ("+strings.Join(logging.Levels, ", ")+")")
	f.StringVar(&o.logFile, "log-file", logging.DefaultFile(), "rotating log file")
	f.StringVar(&o.keyFile, "key-file", credentials.DefaultKeyFile(), "file holding the API key when the keyring is unavailable")
	f.StringVar(&o.lockFile, "lock-file", filepath.Join(home, ".cf-ddns.lock"), "lock file preventing overlapping runs; empty disables locking")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here after every run")
	f.DurationVar(&o.interval, "interval", 0, "keep running and check again at this interval (at least 1m); 0 runs once")
	f.BoolVar(&o.list, "list", false, "list the records in the zone and exit")
	f.BoolVar(&o.update, "update", false, "add or update the record (default action)")
	f.BoolVar(&o.silent, "silent", false, "do not echo log events to stdout")

	cmd.MarkFlagsMutuallyExclusive("email", "use-netrc")
	cmd.MarkFlagsMutuallyExclusive("list", "update")
	cmd.MarkFlagsMutuallyExclusive("ip-service", "interface")
	return cmd
}

func (a *app) run(cmd *cobra.Command) (err error) {
	o := &a.opts
	ctx := cmd.Context()

	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("%w: %w", ddns.ErrConfig, err)
	}
	file, err := config.Load(o.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("%w: %w", ddns.ErrConfig, err)
	}
	if err := o.merge(cmd, file); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: o.logLevel, File: o.logFile, Echo: a.stdout, Silent: o.silent})
	if err != nil {
		return fmt.Errorf("%w: %w", ddns.ErrConfig, err)
	}
	defer logger.Close()
	// at CRITICAL the error line is filtered, so execute prints it instead
	a.logged = !o.silent && logger.IsLevelEnabled(logrus.ErrorLevel)
	defer func() {
		if err != nil {
			logger.Error(describe(err))
		}
	}()

	req, err := o.request()
	if err != nil {
		return err
	}

	if !o.list {
		unlock, err := acquireLock(o.lockFile)
		if err != nil {
			return err
		}
		defer unlock()
	}

	creds, err := credentials.Lookup{
		Key:      o.token,
		Email:    o.email,
		UseNetrc: o.useNetrc,
		KeyFile:  o.keyFile,
		Prompt:   credentials.TerminalPrompt(a.stdout),
		Verify:   verify,
		Logger:   logger,
	}.Resolve()
	if err != nil {
		return err
	}

	resolver, err := o.resolver()
	if err != nil {
		return err
	}
	client, err := ddns.New(o.domain,
		ddns.UsingCloudflare(creds),
		ddns.UsingResolver(resolver),
		ddns.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if o.list {
		records, err := client.List(ctx)
		if err != nil {
			return err
		}
		return ddns.WriteRecordTable(a.stdout, records)
	}

	recorder := metrics.New()
	update := func(ctx context.Context) error {
		start := time.Now()
		results, err := client.Update(ctx, req)
		if o.metricsFile != "" {
			recorder.Observe(start, results, err)
			if werr := recorder.WriteFile(o.metricsFile); werr != nil {
				logger.Warnf("unable to write metrics to %s: %s", o.metricsFile, werr)
			}
		}
		return err
	}

	if o.interval > 0 {
		logger.Infof("checking %s every %s", ddns.FQDN(o.subdomain, o.domain), o.interval)
		ddns.RunDaemon(ctx, o.interval, errorLog{logger}, update)
		return nil
	}
	return update(ctx)
}

// merge fills options left at their defaults from the environment and the config file.
// Flags win over the environment, which wins over the file.
func (o *options) merge(cmd *cobra.Command, file *config.File) error {
	changed := cmd.Flags().Changed
	str := func(name string, dst *string, values ...string) {
		if changed(name) {
			return
		}
		for _, v := range values {
			if v != "" {
				*dst = v
				return
			}
		}
	}
	list := func(name string, dst *[]string, v []string) {
		if !changed(name) && len(v) > 0 {
			*dst = v
		}
	}

	str("domain", &o.domain, file.Domain)
	str("subdomain", &o.subdomain, file.Subdomain)
	str("email", &o.email, os.Getenv(config.EnvEmail), file.Email)
	str("token", &o.token, os.Getenv(config.EnvToken))
	str("type", &o.recordType, file.Type)
	str("cf-mode", &o.cfMode, file.CFMode)
	str("log-level", &o.logLevel, file.LogLevel)
	str("log-file", &o.logFile, file.LogFile)
	str("key-file", &o.keyFile, file.KeyFile)
	str("lock-file", &o.lockFile, file.LockFile)
	str("metrics-file", &o.metricsFile, file.MetricsFile)
	if changed("interface") {
		// an explicit interface list replaces the configured services
		o.ipServices = nil
	} else {
		list("ip-service", &o.ipServices, file.IPServices)
	}
	if !changed("ip-service") {
		list("interface", &o.interfaces, file.Interfaces)
	}

	if !changed("interval") && file.Interval != "" {
		d, err := time.ParseDuration(file.Interval)
		if err != nil {
			return fmt.Errorf("%w: invalid interval %q in config file: %w", ddns.ErrConfig, file.Interval, err)
		}
		o.interval = d
	}
	if o.useNetrc && o.email != "" && !changed("email") {
		// an email from the environment or config file must not fight the netrc entry
		o.email = ""
	}
	return nil
}

// request validates the options and builds the update request.
// Explicit content is checked here so a bad value fails before credentials are looked up.
func (o *options) request() (ddns.Request, error) {
	var req ddns.Request
	if o.domain == "" {
		return req, fmt.Errorf("%w: --domain is required", ddns.ErrConfig)
	}
	mode, err := ddns.ParseServiceMode(o.cfMode)
	if err != nil {
		return req, err
	}
	var typ ddns.RecordType
	if o.recordType != "" {
		if typ, err = ddns.ParseRecordType(o.recordType); err != nil {
			return req, err
		}
	}
	if len(o.content) == 0 && !o.list && typ != "" && typ != ddns.TypeA && typ != ddns.TypeAAAA {
		return req, fmt.Errorf("%w: --type %s needs --content; discovered addresses are published as A or AAAA records", ddns.ErrConfig, typ)
	}
	if o.interval < 0 {
		return req, fmt.Errorf("%w: --interval cannot be negative", ddns.ErrConfig)
	}
	req = ddns.Request{
		Subdomain:   o.subdomain,
		Content:     o.content,
		Type:        typ,
		ServiceMode: mode,
	}
	if len(o.content) > 0 && !o.list {
		if _, err := ddns.NewTargets(ddns.FQDN(o.subdomain, o.domain), o.content, typ, mode); err != nil {
			return req, err
		}
	}
	return req, nil
}

func (o *options) resolver() (ddns.Resolver, error) {
	if len(o.interfaces) > 0 {
		return ddns.InterfaceResolver(o.interfaces...), nil
	}
	return ddns.WebResolver(o.ipServices...)
}

// verify checks a freshly prompted key against the API before it is saved.
func verify(creds ddns.Credentials) error {
	cf, err := ddns.NewCloudflare(creds)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cf.Verify(ctx)
}

// errorLog sends RunDaemon's messages to the error level.
type errorLog struct{ *logging.Logger }

func (l errorLog) Printf(format string, args ...any) { l.Errorf(format, args...) }

func exitCode(err error) int {
	var ve *ddns.ValidationError
	var pe *ddns.ProviderError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ddns.ErrConfig):
		return exitConfig
	case errors.As(err, &ve):
		return exitValidation
	case errors.Is(err, ddns.ErrNoAddress):
		return exitNoAddress
	case errors.As(err, &pe):
		return exitProvider
	}
	return exitFailure
}

func describe(err error) string {
	var pe *ddns.ProviderError
	switch {
	case errors.Is(err, ddns.ErrNoAddress):
		return "Sorry, can't do anything without the external IP address. " +
			"Please specify an IP address manually or make sure the IP resolution service(s) work as expected: " + err.Error()
	case errors.As(err, &pe):
		return "CloudFlare API responded with error: " + err.Error()
	}
	return err.Error()
}

func joinTypes() string {
	names := make([]string, len(ddns.RecordTypes))
	for i, t := range ddns.RecordTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
