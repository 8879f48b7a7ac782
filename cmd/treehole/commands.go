package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/config"
	"github.com/pders01/treehole/internal/debuglog"
	"github.com/pders01/treehole/internal/media"
	"github.com/pders01/treehole/internal/plugins"
	"github.com/pders01/treehole/internal/query"
)

var versionVerbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("treehole %s\n", Version)
		fmt.Println("treehole terminal client")
		fmt.Println("github.com/pders01/treehole")
		if !versionVerbose {
			return
		}
		e, err := openEnv(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open environment: %v\n", err)
			return
		}
		defer e.Close()
		versionDetails(os.Stdout, e)
	},
}

// versionDetails prints the local state a bug report usually needs.
func versionDetails(w io.Writer, e *env) {
	fmt.Fprintf(w, "log level: %s\n", debuglog.GetLevel())
	if n, err := e.store.CountPosts(); err != nil {
		fmt.Fprintf(w, "archived posts: unknown (%v)\n", err)
	} else {
		fmt.Fprintf(w, "archived posts: %d\n", n)
	}
	var names []string
	for _, p := range plugins.NewDefaultRegistry(e.client, e.cfg.Chat).ListPlugins() {
		names = append(names, p.Name())
	}
	fmt.Fprintf(w, "chat providers: %s (default %s)\n", strings.Join(names, ", "), e.cfg.Chat.Provider)
}

var configGenCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write the default config to ~/.config/treehole/config.toml",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "treehole", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			return
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

var (
	loginUser          string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		user := strings.TrimSpace(loginUser)
		if user == "" {
			fmt.Fprint(out, "username: ")
			line, err := in.ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			user = strings.TrimSpace(line)
		}
		pass, err := readPassword(cmd.InOrStdin(), in, out)
		if err != nil {
			return err
		}
		if user == "" || pass == "" {
			return fmt.Errorf("username and password are required")
		}

		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		cred, err := e.client.Login(cmd.Context(), user, pass)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nLogged in as %s\n", cred.Username)
		return nil
	},
}

// readPassword reads without echo from a terminal and falls back to a plain
// line otherwise.
func readPassword(src io.Reader, in *bufio.Reader, out io.Writer) (string, error) {
	if loginPasswordStdin {
		line, err := in.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "password: ")
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		if !e.session.Authenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			return nil
		}
		if err := e.client.Logout(cmd.Context()); err != nil {
			// The local session is gone either way.
			fmt.Fprintf(cmd.ErrOrStderr(), "server logout failed: %v\n", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print one page of the feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		q, err := e.initialQuery(cmd.Flags().Changed)
		if err != nil {
			return err
		}

		page, err := e.client.ListPosts(cmd.Context(), q)
		if err != nil {
			return err
		}
		if err := e.store.SavePosts(page.Items); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "archiving posts: %v\n", err)
		}

		totalPages := query.TotalPages(page.Total, q.PageSize)
		window := query.Window(q.Page, totalPages, e.cfg.Feed.WindowPolicy())
		fmt.Fprintln(cmd.OutOrStdout(), renderPosts(page.Items, time.Now()))
		fmt.Fprintln(cmd.OutOrStdout(), pageLine(q, totalPages, page.Total, window))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the author statistics and the aish123 thread list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		stats, aish, err := fetchDashboards(cmd.Context(), e.client)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats))
		fmt.Fprintln(cmd.OutOrStdout(), renderAish(aish))
		return nil
	},
}

type dashboards interface {
	Statistics(ctx context.Context) ([]api.Stat, error)
	AishPosts(ctx context.Context) ([]api.AishPost, error)
}

// fetchDashboards loads both lists concurrently. The first failure cancels
// the other request.
func fetchDashboards(ctx context.Context, src dashboards) ([]api.Stat, []api.AishPost, error) {
	var (
		stats []api.Stat
		aish  []api.AishPost
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = src.Statistics(gctx)
		if err != nil {
			return fmt.Errorf("statistics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		aish, err = src.AishPosts(gctx)
		if err != nil {
			return fmt.Errorf("aish: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return stats, aish, nil
}

var askProvider string

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask the configured chat provider",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false)
		if err != nil {
			return err
		}
		defer e.Close()

		provider := askProvider
		if provider == "" {
			provider = e.cfg.Chat.Provider
		}
		registry := plugins.NewDefaultRegistry(e.client, e.cfg.Chat)
		answer, err := registry.Ask(cmd.Context(), provider, strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := answer.Content
		if r, rerr := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80)); rerr == nil {
			if rendered, rerr := r.Render(answer.Content); rerr == nil {
				out = rendered
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		fmt.Fprintln(cmd.OutOrStdout(), lipgloss.NewStyle().Faint(true).Render(answer.Provider+" · "+answer.Model))
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "Also show log level, archive size and chat providers")
	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "Username (prompted when empty)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin without a prompt")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "Chat provider (doubao or qwen)")
}

func renderPosts(posts []api.Post, now time.Time) string {
	if len(posts) == 0 {
		return "No posts on this page"
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Author", "When", "👍", "👎", "💬", "Post")
	for _, p := range posts {
		author := p.Author
		if author == "" {
			author = "匿名"
		}
		body := strings.Join(strings.Fields(media.StripImages(p.Content)), " ")
		if media.FirstImageURL(p.Content) != "" {
			body = "🖼 " + body
		}
		t.Row(
			p.Key(),
			clip(author, 16),
			ago(postTime(p), now),
			fmt.Sprint(p.VotePositive),
			fmt.Sprint(p.VoteNegative),
			fmt.Sprint(p.SubCommentCount),
			clip(body, 60),
		)
	}
	return t.String()
}

// pageLine shows the pager window with the current page bracketed.
func pageLine(q query.State, totalPages, total int, window []int) string {
	if totalPages == 0 {
		return "0 posts"
	}
	parts := make([]string, 0, len(window))
	for i, p := range window {
		if i > 0 && p-window[i-1] > 1 {
			parts = append(parts, "…")
		}
		if p == q.Page {
			parts = append(parts, fmt.Sprintf("[%d]", p+1))
		} else {
			parts = append(parts, fmt.Sprint(p+1))
		}
	}
	return fmt.Sprintf("%s  •  %d posts  •  %s", strings.Join(parts, " "), total, q.Summary())
}

func renderStats(stats []api.Stat) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Author", "Posts", "Comments", "Likes", "Dislikes")
	for _, s := range stats {
		t.Row(clip(s.Author, 20), fmt.Sprint(s.ArticlesPosted), fmt.Sprint(s.CommentsReceived),
			fmt.Sprint(s.TotalLikes), fmt.Sprint(s.TotalDislikes))
	}
	return t.String()
}

func renderAish(posts []api.AishPost) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Title", "Area", "Author", "Replies", "Reads", "Last reply")
	now := time.Now()
	for _, p := range posts {
		title := p.Title
		if p.IsNewUserPost {
			title = "★ " + title
		}
		t.Row(clip(title, 40), p.Area, clip(p.Author, 14), fmt.Sprint(p.ReplyCount),
			fmt.Sprint(p.ReadCount), ago(p.LastReplyTime.Time, now))
	}
	return t.String()
}

func postTime(p api.Post) time.Time {
	if !p.DateGMT.IsZero() {
		return p.DateGMT.Time
	}
	return p.CreatedAt.Time
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ago is the coarse form used in plain output.
func ago(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := now.Sub(t).Round(time.Minute)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
