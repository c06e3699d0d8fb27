package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/arnevogt/kindledigest/internal/config"
	"github.com/arnevogt/kindledigest/internal/database"
	"github.com/arnevogt/kindledigest/internal/llm"
	"github.com/arnevogt/kindledigest/internal/pipeline"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "kindledigest",
	Short:   "Personalized daily reading digests for your e-reader",
	Long:    "kindledigest merges saved articles with scored RSS items into tiered EPUB digests and delivers them by email.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kindledigest", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/kindledigest/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure interests, feeds, email, and the LLM provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and delivery status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Articles:")
		fmt.Printf("  Saved (pending): %d\n", stats.SavedArticles)
		fmt.Printf("  Archived: %d\n", stats.ArchivedArticles)
		fmt.Printf("  Delivered: %d\n", stats.SentArticles)
		fmt.Println("\nDigest runs:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Successful: %d\n", stats.SuccessfulRuns)

		runs, err := db.GetRecentRuns(5)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			fmt.Println("\nRecent runs:")
			for _, r := range runs {
				line := fmt.Sprintf("  %s  %s", r.RunDate, r.Status)
				if r.Error != nil {
					line += "  (" + *r.Error + ")"
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

// --- run command ---

var forceRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Assemble and deliver today's digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := newPipeline(db).Run(context.Background(), forceRun)
		if err != nil {
			return err
		}
		printRunResult(result)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&forceRun, "force", false, "Run even if today's digest was already delivered")
}

func printRunResult(result *pipeline.Result) {
	if result.Skipped {
		fmt.Println("Today's digest was already delivered. Use --force to rerun.")
		return
	}
	if !result.Delivered {
		fmt.Println("No articles available today; nothing was delivered.")
		return
	}

	fmt.Printf("Delivered %d articles (%d critical, %d notable, %d related).\n",
		result.Articles, result.Stats.Critical, result.Stats.Notable, result.Stats.Related)
	for _, name := range result.Filenames {
		fmt.Printf("  %s\n", name)
	}
	fmt.Printf("Message ID: %s\n", result.MessageID)
}

// --- save command ---

var saveTags []string

var saveCmd = &cobra.Command{
	Use:   "save [url]",
	Short: "Save an article for the next digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := newPipeline(db).SaveArticle(context.Background(), args[0], saveTags)
		if err != nil {
			return err
		}

		article, err := db.GetArticleByID(id)
		if err != nil || article == nil {
			return fmt.Errorf("article saved but could not be read back: %v", err)
		}
		fmt.Printf("Saved [%d]: %s (%d min read)\n", id, article.Title, article.ReadingMinutes)
		return nil
	},
}

func init() {
	saveCmd.Flags().StringSliceVarP(&saveTags, "tags", "t", nil, "Topic tags for the article")
}

// --- send command ---

var sendCmd = &cobra.Command{
	Use:   "send [id]",
	Short: "Deliver a single saved article immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid article ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		messageID, err := newPipeline(db).SendSingle(context.Background(), id)
		if err != nil {
			return err
		}
		fmt.Printf("Sent article %d (message %s)\n", id, messageID)
		return nil
	},
}

// --- list command ---

var listArchived bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		status := database.StatusSaved
		if listArchived {
			status = database.StatusArchived
		}
		articles, err := db.ListArticles(status)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Println("No articles. Save one with: kindledigest save <url>")
			return nil
		}

		for _, a := range articles {
			sent := " "
			if a.SentAt != nil {
				sent = "*"
			}
			line := fmt.Sprintf("  [%d] %s %s", a.ID, sent, a.Title)
			if len(a.Tags) > 0 {
				line += "  (" + strings.Join(a.Tags, ", ") + ")"
			}
			fmt.Println(line)
		}
		fmt.Println("\n  * = already delivered")
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "List archived feed items instead of saved articles")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the digest on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		scheduler := cron.New()
		_, err = scheduler.AddFunc(cfg.Schedule, func() {
			result, err := newPipeline(db).Run(context.Background(), false)
			if err != nil {
				log.Printf("Scheduled run failed: %v", err)
				return
			}
			printRunResult(result)
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
		}

		fmt.Printf("Scheduler running (%s). Press Ctrl+C to stop.\n", cfg.Schedule)
		scheduler.Start()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		<-scheduler.Stop().Done()
		return nil
	},
}

func newPipeline(db *database.DB) *pipeline.Pipeline {
	provider := llm.CreateProvider(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.OllamaURL, cfg.LLM.OpenAIModel, cfg.LLM.APIKeyEnv)
	return pipeline.New(cfg, db, provider)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "kindledigest.db"))
}
