package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/vidbot/internal/app"
	"github.com/yourusername/vidbot/internal/domain"
)

var (
	serverURL string
	timeout   time.Duration
	rootCmd   = &cobra.Command{
		Use:   "vidbotctl",
		Short: "vidbotctl - inspect a running vidbot",
		Long:  `A command-line interface for inspecting the jobs, logs and session of a running vidbot.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "Server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

func client() *apiClient {
	return newAPIClient(serverURL, timeout)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List download jobs",
	Run: func(cmd *cobra.Command, args []string) {
		query := url.Values{}
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			query.Set("status", status)
		}
		if platform, _ := cmd.Flags().GetString("platform"); platform != "" {
			query.Set("platform", platform)
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			query.Set("limit", strconv.Itoa(limit))
		}

		var list jobList
		if err := client().getJSON("/api/v1/jobs", query, &list); err != nil {
			fail(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPLATFORM\tSTATUS\tURL\tCREATED")
		for _, j := range list.Jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(j.ID, 8),
				j.Platform,
				j.Status,
				truncate(j.URL, 40),
				j.CreatedAt)
		}
		w.Flush()
	},
}

var jobCmd = &cobra.Command{
	Use:   "job [id]",
	Short: "Show job details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var j jobView
		if err := client().getJSON("/api/v1/jobs/"+url.PathEscape(args[0]), nil, &j); err != nil {
			fail(err)
		}

		fmt.Printf("Job Details:\n")
		fmt.Printf("  ID:        %s\n", j.ID)
		fmt.Printf("  Message:   %s\n", j.MessageID)
		fmt.Printf("  Chat:      %s\n", j.ChatID)
		fmt.Printf("  Sender:    %s\n", j.SenderName)
		fmt.Printf("  URL:       %s\n", j.URL)
		fmt.Printf("  Platform:  %s\n", j.Platform)
		fmt.Printf("  Status:    %s\n", j.Status)
		fmt.Printf("  Created:   %s\n", j.CreatedAt)
		if j.Title != "" {
			fmt.Printf("  Title:     %s\n", j.Title)
		}
		if j.FilePath != "" {
			fmt.Printf("  File:      %s\n", j.FilePath)
			fmt.Printf("  Delivered: %t\n", j.Delivered)
		}
		if j.ErrorMessage != "" {
			fmt.Printf("  Error:     %s\n", j.ErrorMessage)
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job statistics",
	Run: func(cmd *cobra.Command, args []string) {
		var stats statsView
		if err := client().getJSON("/api/v1/jobs/stats", nil, &stats); err != nil {
			fail(err)
		}

		fmt.Println("Job Statistics:")
		fmt.Printf("  Total:     %d\n", stats.Jobs.Total)
		fmt.Printf("  Pending:   %d\n", stats.Jobs.Pending)
		fmt.Printf("  Running:   %d\n", stats.Jobs.Running)
		fmt.Printf("  Succeeded: %d\n", stats.Jobs.Succeeded)
		fmt.Printf("  Failed:    %d\n", stats.Jobs.Failed)
		fmt.Printf("  In flight: %d\n", stats.Active)
		fmt.Printf("  Tracked:   %d\n", stats.Tracked)
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the activity log",
	Run: func(cmd *cobra.Command, args []string) {
		query := url.Values{}
		limit, _ := cmd.Flags().GetInt("limit")
		query.Set("limit", strconv.Itoa(limit))

		path := "/api/v1/logs"
		if search, _ := cmd.Flags().GetString("search"); search != "" {
			path = "/api/v1/logs/search"
			query.Set("q", search)
		}

		var list logList
		if err := client().getJSON(path, query, &list); err != nil {
			fail(err)
		}

		for _, e := range list.Entries {
			fmt.Println(formatLogEntry(e))
		}
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the WhatsApp session state",
	Run: func(cmd *cobra.Command, args []string) {
		c := client()

		if wait, _ := cmd.Flags().GetDuration("wait"); wait > 0 {
			if err := c.waitForReady(wait); err != nil {
				fail(err)
			}
		}

		var s sessionView
		if err := c.getJSON("/api/v1/session", nil, &s); err != nil {
			fail(err)
		}

		fmt.Printf("State: %s\n", s.State)
		if s.QRAvailable {
			fmt.Printf("Scan the QR code at %s/api/v1/session/qr\n", serverURL)
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			fail(fmt.Errorf("%s already exists, use --force to overwrite", path))
		}

		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			fail(err)
		}
		fmt.Printf("Configuration written to %s\n", path)
	},
}

func init() {
	jobsCmd.Flags().StringP("status", "s", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	jobsCmd.Flags().StringP("platform", "p", "", "Filter by platform (youtube, facebook, genericVideo)")
	jobsCmd.Flags().IntP("limit", "n", 50, "Maximum number of jobs")
	logsCmd.Flags().IntP("limit", "n", 100, "Maximum number of lines")
	logsCmd.Flags().StringP("search", "q", "", "Only show lines containing this text")
	sessionCmd.Flags().Duration("wait", 0, "Wait until the session is ready")
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}

func formatLogEntry(e logEntry) string {
	if e.Timestamp == "" {
		return e.Message
	}
	return fmt.Sprintf("%s [%s]: %s", e.Timestamp, e.Level, e.Message)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
