package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/go-logr/zapr"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/sap/cloudfoundry-client-go/clients/jobs"
	"github.com/sap/cloudfoundry-client-go/clients/servicebindings"
	"github.com/sap/cloudfoundry-client-go/cloudfoundry"
	"github.com/sap/cloudfoundry-client-go/internal"
)

const (
	appName = "cf-bindings"

	errReadCredentialsFile = "cannot read credentials file"
	errCreateConnection    = "cannot create connection"
	errCreateTokenProvider = "cannot create token provider"
	errParseTags           = "cannot parse request tags"
	errCreateLogger        = "cannot create logger"
	errUnknownCommand      = "unknown command %q"

	flagEnvFile = "--env-file"
)

type globalFlags struct {
	api             string
	username        string
	password        string
	clientID        string
	clientSecret    string
	origin          string
	accessToken     string
	credentialsFile string
	envFile         string
	skipSSL         bool
	timeout         time.Duration
	tags            []string
	output          string
	query           string
	debug           bool
}

type cli struct {
	app   *kingpin.Application
	out   io.Writer
	flags globalFlags

	handlers map[string]func(ctx context.Context, c *clients) error
}

// clients bundles everything a command needs.
type clients struct {
	bindings servicebindings.ServiceBindingsV3
	jobs     *jobs.Client
	log      logging.Logger
}

func newCLI(out io.Writer) *cli {
	c := &cli{
		app:      kingpin.New(appName, "Manage Cloud Foundry service credential bindings.").DefaultEnvars(),
		out:      out,
		handlers: map[string]func(ctx context.Context, c *clients) error{},
	}
	f := &c.flags
	c.app.Flag("api", "Cloud Foundry API endpoint, e.g. https://api.cf.example.com.").Required().StringVar(&f.api)
	c.app.Flag("username", "User for the password grant.").Short('u').StringVar(&f.username)
	c.app.Flag("password", "Password for the password grant.").Short('p').StringVar(&f.password)
	c.app.Flag("client-id", "OAuth client. Defaults to cf for the password grant.").StringVar(&f.clientID)
	c.app.Flag("client-secret", "OAuth client secret, without username the client_credentials grant is used.").StringVar(&f.clientSecret)
	c.app.Flag("origin", "Identity provider origin passed as login hint.").StringVar(&f.origin)
	c.app.Flag("access-token", "Use this bearer token instead of obtaining one from UAA.").StringVar(&f.accessToken)
	c.app.Flag("credentials-file", "JSON file with username, password, origin, client_id, client_secret and grant_type.").ExistingFileVar(&f.credentialsFile)
	c.app.Flag("env-file", "Dotenv file loaded before the flags are parsed.").StringVar(&f.envFile)
	c.app.Flag("skip-ssl-validation", "Skip verification of the API certificate.").BoolVar(&f.skipSSL)
	c.app.Flag("timeout", "Timeout of a single HTTP request.").Default("30s").DurationVar(&f.timeout)
	c.app.Flag("tag", "Request tag sent as header with every request, key=value. Repeatable.").StringsVar(&f.tags)
	c.app.Flag("output", "Output format.").Short('o').Default(outputJSON).EnumVar(&f.output, outputJSON, outputYAML)
	c.app.Flag("query", "JMESPath expression applied to the output.").Short('q').StringVar(&f.query)
	c.app.Flag("debug", "Run with debug logging, HTTP exchanges are logged redacted.").Short('d').BoolVar(&f.debug)

	c.registerCommands()
	return c
}

func (c *cli) run(ctx context.Context, command string) error {
	handler, ok := c.handlers[command]
	if !ok {
		return errors.Errorf(errUnknownCommand, command)
	}
	cl, err := c.connect()
	if err != nil {
		return err
	}
	return handler(ctx, cl)
}

func (c *cli) logger() (logging.Logger, error) {
	var zl *zap.Logger
	var err error
	if c.flags.debug {
		zl, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		zl, err = cfg.Build()
	}
	if err != nil {
		return nil, errors.Wrap(err, errCreateLogger)
	}
	return logging.NewLogrLogger(zapr.NewLogger(zl).WithName(appName)), nil
}

func (c *cli) connect() (*clients, error) {
	log, err := c.logger()
	if err != nil {
		return nil, err
	}

	connection, err := cloudfoundry.NewConnectionContext(c.flags.api,
		cloudfoundry.WithSkipSSLValidation(c.flags.skipSSL),
		cloudfoundry.WithTimeout(c.flags.timeout),
		cloudfoundry.WithLogger(log),
		cloudfoundry.WithDebug(c.flags.debug),
	)
	if err != nil {
		return nil, errors.Wrap(err, errCreateConnection)
	}

	tokens, err := c.tokenProvider(connection)
	if err != nil {
		return nil, errors.Wrap(err, errCreateTokenProvider)
	}

	tags, err := internal.ParseKeyValues(c.flags.tags)
	if err != nil {
		return nil, errors.Wrap(err, errParseTags)
	}
	requestTags := make(map[string]string, len(tags))
	for k, v := range tags {
		requestTags[k] = internal.Val(v)
	}

	operations := cloudfoundry.NewOperations(connection, tokens, requestTags)
	return &clients{
		bindings: servicebindings.NewClient(operations),
		jobs:     jobs.NewClient(operations),
		log:      log,
	}, nil
}

func (c *cli) tokenProvider(connection *cloudfoundry.ConnectionContext) (cloudfoundry.TokenProvider, error) {
	if c.flags.accessToken != "" {
		return cloudfoundry.StaticTokenProvider(c.flags.accessToken), nil
	}
	credentials, err := c.credentials()
	if err != nil {
		return nil, err
	}
	return cloudfoundry.NewTokenProvider(connection, credentials)
}

// credentials merges the credentials file with the flags, flags win.
func (c *cli) credentials() (cloudfoundry.Credentials, error) {
	credentials := cloudfoundry.Credentials{}
	if c.flags.credentialsFile != "" {
		data, err := os.ReadFile(filepath.Clean(c.flags.credentialsFile))
		if err != nil {
			return credentials, errors.Wrap(err, errReadCredentialsFile)
		}
		if credentials, err = cloudfoundry.CredentialsFromJSON(data); err != nil {
			return credentials, err
		}
	}
	override(&credentials.Username, c.flags.username)
	override(&credentials.Password, c.flags.password)
	override(&credentials.Origin, c.flags.origin)
	override(&credentials.ClientID, c.flags.clientID)
	override(&credentials.ClientSecret, c.flags.clientSecret)
	if credentials.GrantType == "" && credentials.Username == "" && credentials.ClientSecret != "" {
		credentials.GrantType = "client_credentials"
	}
	return credentials, nil
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// loadEnvFile loads the dotenv file named by --env-file. It runs before kingpin parses the
// arguments so the loaded variables serve as flag defaults.
func loadEnvFile(args []string) error {
	for i, arg := range args {
		var path string
		switch {
		case strings.HasPrefix(arg, flagEnvFile+"="):
			path = strings.TrimPrefix(arg, flagEnvFile+"=")
		case arg == flagEnvFile && i+1 < len(args):
			path = args[i+1]
		default:
			continue
		}
		return godotenv.Load(path)
	}
	if path := os.Getenv("CF_BINDINGS_ENV_FILE"); path != "" {
		return godotenv.Load(path)
	}
	return nil
}
