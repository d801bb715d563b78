package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/interviewprep-backend/pkg/practiceclient"
)

const defaultUserID = "smoke-user"

type options struct {
	baseURL string
	token   string
	userID  string
	timeout time.Duration
}

var errChecksFailed = errors.New("smoke checks failed")

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "smoke",
		Short:         "Smoke checks against a running interview practice API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL (without /api)")
	flags.StringVar(&opts.token, "token", "", "Bearer token; minted through /api/auth/token when empty")
	flags.StringVar(&opts.userID, "user-id", defaultUserID, "User id for the minted dev token")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall timeout for the run")

	suite := func(use, short string, groups ...func(*smokeRun)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSuite(cmd.Context(), cmd.OutOrStdout(), opts, groups...)
			},
		}
	}

	root.AddCommand(
		suite("health", "Liveness and readiness probes", healthChecks),
		suite("cache", "Redis probe and repeated session reads", cacheChecks),
		suite("practice", "Full practice session flow", practiceChecks),
		suite("all", "Every smoke check", healthChecks, cacheChecks, practiceChecks),
	)
	return root
}

func runSuite(ctx context.Context, out io.Writer, opts *options, groups ...func(*smokeRun)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	run := &smokeRun{
		ctx:     ctx,
		out:     out,
		opts:    opts,
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		http:    &http.Client{Timeout: opts.timeout},
	}
	for _, group := range groups {
		group(run)
	}

	fmt.Fprintf(out, "\n%d passed, %d failed\n", run.passed, run.failed)
	if run.failed > 0 {
		return errChecksFailed
	}
	return nil
}

// smokeRun carries shared state across checks and tallies outcomes.
type smokeRun struct {
	ctx     context.Context
	out     io.Writer
	opts    *options
	baseURL string
	http    *http.Client

	token  string
	client *practiceclient.Client

	passed int
	failed int
}

func (r *smokeRun) check(name string, fn func() error) bool {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		r.failed++
		fmt.Fprintf(r.out, "FAIL %-32s %v (%s)\n", name, err, elapsed)
		return false
	}
	r.passed++
	fmt.Fprintf(r.out, "PASS %-32s (%s)\n", name, elapsed)
	return true
}

// practiceClient returns a client authenticated with --token or a freshly
// minted dev token.
func (r *smokeRun) practiceClient() (*practiceclient.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	token := r.opts.token
	if token == "" {
		minted, err := r.mintToken()
		if err != nil {
			return nil, err
		}
		token = minted
	}
	r.token = token
	r.client = practiceclient.New(r.baseURL+"/api",
		practiceclient.WithToken(token),
		practiceclient.WithHTTPClient(r.http),
		practiceclient.WithUserAgent("interviewprep-smoke"),
	)
	return r.client, nil
}
