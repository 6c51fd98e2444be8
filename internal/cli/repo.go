package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"appdeck-core/internal/application/dto"
	"appdeck-core/internal/application/service"
	"appdeck-core/internal/config"
	"appdeck-core/internal/github"
	infragithub "appdeck-core/internal/infrastructure/github"
)

type repoFlags struct {
	apiURL  string
	token   string
	timeout time.Duration
	asJSON  bool
}

func (a *app) newRepoCmd() *cobra.Command {
	var f repoFlags

	cmd := &cobra.Command{
		Use:   "repo <github-url>",
		Short: "Show metadata, recent commits and recent releases of a GitHub repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRepo(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.apiURL, "api-url", "", "GitHub API base URL (default $GITHUB_API_URL or https://api.github.com/)")
	cmd.Flags().StringVar(&f.token, "token", "", "GitHub token (default $GITHUB_TOKEN)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "overall request timeout")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func (a *app) runRepo(cmd *cobra.Command, url string, f repoFlags) error {
	ghCfg := config.GitHubFromEnv()
	if f.apiURL != "" {
		ghCfg.APIURL = f.apiURL
	}
	if f.token != "" {
		ghCfg.Token = f.token
	}

	client, err := github.NewClient(ghCfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	notifier := &consoleNotifier{out: cmd.ErrOrStderr()}
	aggregator := service.NewRepositoryAggregator(infragithub.NewGitHubService(client), notifier, nil, nil, a.log("aggregator"))

	ctx, cancel := contextWithTimeout(cmd, f.timeout)
	defer cancel()

	fetchErr := aggregator.Bind(ctx, url)
	state := aggregator.State()

	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dto.ToRepositorySnapshotResponse(state)); err != nil {
			return err
		}
		return fetchErr
	}

	if fetchErr != nil && state.Snapshot.IsEmpty() {
		return fetchErr
	}
	renderSnapshot(out, state)
	return fetchErr
}

// consoleNotifier prints notifications on a terminal
type consoleNotifier struct {
	out io.Writer
}

func (n *consoleNotifier) NotifySuccess(message string) {
	fmt.Fprintln(n.out, color.GreenString(message))
}

func (n *consoleNotifier) NotifyError(message string) {
	fmt.Fprintln(n.out, color.RedString(message))
}
