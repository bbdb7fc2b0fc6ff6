package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"assetrepo/internal/app"
	"assetrepo/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Global flags.
var (
	repoName     string
	outputFormat string
	verbose      bool
)

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "AddAsset", "UpdateState").
func newApp(operation string, args []string) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, app.Options{
		Repository: repoName,
		Operation:  operation,
		Parameters: strings.Join(args, " "),
		Verbose:    verbose,
		Stderr:     os.Stderr,
		Passphrase: promptPassphrase,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("passphrase required: set %s or run from a terminal", app.EnvPassphrase)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "assetrepo",
	Short:        "Read and manage asset repositories",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Add a [[repositories]] entry before running other commands.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Database: %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		for _, r := range cfg.Repositories {
			location := r.Path
			if r.Type == config.TypeREST {
				location = r.URL
			}
			fmt.Printf("Repository: %-12s %-10s %s\n", r.Name, r.Type, location)
		}
		return nil
	},
}

// credentials command
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage repository passwords",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set REPOSITORY",
	Short: "Encrypt a repository password into its password_file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		password, err := promptPassphrase("Repository password: ")
		if err != nil {
			return err
		}
		passphrase := os.Getenv(app.EnvPassphrase)
		if passphrase == "" {
			if passphrase, err = promptPassphrase("Encryption passphrase: "); err != nil {
				return err
			}
		}
		path, err := app.SetPassword(cfg, args[0], passphrase, password)
		if err != nil {
			return err
		}
		fmt.Printf("Password for %s written to %s\n", args[0], path)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the repository is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CheckStatus", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Status(cmd.Context()); err != nil {
			return fmt.Errorf("repository %s: %w", a.Repository(), err)
		}
		fmt.Printf("Repository %s is available\n", a.Repository())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		types, _ := cmd.Flags().GetStringSlice("type")
		products, _ := cmd.Flags().GetStringSlice("product")
		visibility, _ := cmd.Flags().GetString("visibility")
		versions, _ := cmd.Flags().GetStringSlice("version")
		unbounded, _ := cmd.Flags().GetBool("unbounded")

		a, err := newApp("ListAssets", args)
		if err != nil {
			return err
		}
		defer a.Close()

		assets, err := a.ListAssets(cmd.Context(), app.Query{
			Types:      types,
			ProductIDs: products,
			Visibility: visibility,
			Versions:   versions,
			Unbounded:  unbounded,
		})
		if err != nil {
			return err
		}
		return app.RenderAssets(cmd.OutOrStdout(), outputFormat, assets)
	},
}

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one asset with its attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetAsset", args)
		if err != nil {
			return err
		}
		defer a.Close()

		asset, err := a.GetAsset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return app.RenderAsset(cmd.OutOrStdout(), outputFormat, asset)
	},
}

var findCmd = &cobra.Command{
	Use:   "find TEXT",
	Short: "Search asset names and descriptions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		types, _ := cmd.Flags().GetStringSlice("type")

		a, err := newApp("FindAssets", args)
		if err != nil {
			return err
		}
		defer a.Close()

		assets, err := a.FindAssets(cmd.Context(), args[0], types)
		if err != nil {
			return err
		}
		return app.RenderAssets(cmd.OutOrStdout(), outputFormat, assets)
	},
}

var addCmd = &cobra.Command{
	Use:   "add FILE.json",
	Short: "Add an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddAsset", args)
		if err != nil {
			return err
		}
		defer a.Close()

		asset, err := a.AddAsset(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("adding asset: %w", err)
		}
		return app.RenderAsset(cmd.OutOrStdout(), outputFormat, asset)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update FILE.json",
	Short: "Replace an asset; the file must carry its _id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("UpdateAsset", args)
		if err != nil {
			return err
		}
		defer a.Close()

		asset, err := a.UpdateAsset(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("updating asset: %w", err)
		}
		return app.RenderAsset(cmd.OutOrStdout(), outputFormat, asset)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an asset and its attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteAsset", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteAsset(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting asset: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var attachCmd = &cobra.Command{
	Use:   "attach ASSET-ID [FILE]",
	Short: "Upload a file, or link a url, as an attachment",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := app.AttachmentInput{}
		in.Type, _ = cmd.Flags().GetString("type")
		in.Name, _ = cmd.Flags().GetString("name")
		in.URL, _ = cmd.Flags().GetString("url")
		in.Locale, _ = cmd.Flags().GetString("locale")
		in.Replace, _ = cmd.Flags().GetBool("replace")
		if len(args) == 2 {
			in.Path = args[1]
		}

		a, err := newApp("AddAttachment", args)
		if err != nil {
			return err
		}
		defer a.Close()

		att, err := a.AddAttachment(cmd.Context(), args[0], in)
		if err != nil {
			return fmt.Errorf("adding attachment: %w", err)
		}
		return app.RenderAttachment(cmd.OutOrStdout(), outputFormat, att)
	},
}

// attachment command
var attachmentCmd = &cobra.Command{
	Use:   "attachment",
	Short: "Read and delete attachments",
}

var attachmentGetCmd = &cobra.Command{
	Use:   "get ASSET-ID ATTACHMENT",
	Short: "Download an attachment by id or name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		a, err := newApp("GetAttachment", args)
		if err != nil {
			return err
		}
		defer a.Close()

		var w io.Writer = cmd.OutOrStdout()
		if out != "" && out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		n, err := a.GetAttachment(cmd.Context(), args[0], args[1], w)
		if err != nil {
			return err
		}
		if out != "" && out != "-" {
			fmt.Printf("Wrote %d bytes to %s\n", n, out)
		}
		return nil
	},
}

var attachmentDeleteCmd = &cobra.Command{
	Use:   "delete ASSET-ID ATTACHMENT-ID",
	Short: "Delete an attachment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteAttachment", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteAttachment(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("deleting attachment: %w", err)
		}
		fmt.Printf("Deleted attachment %s\n", args[1])
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state ID ACTION",
	Short: "Apply a workflow action (publish, approve, cancel, need_more_info, unpublish)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("UpdateState", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.UpdateState(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("updating state: %w", err)
		}
		fmt.Printf("Applied %s to %s\n", args[1], args[0])
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded write operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory", args)
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.Duration().Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-16s  %s  %-10s  %-8s  %-12s  %s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Repository,
				op.Status,
				op.AssetID,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoName, "repo", "", "Configured repository to use (default: the first)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", app.FormatJSON, "Output format: json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	credentialsCmd.AddCommand(credentialsSetCmd)

	// attachment subcommands
	attachmentCmd.AddCommand(attachmentGetCmd)
	attachmentGetCmd.Flags().StringP("out", "o", "", "Write the content to this file instead of stdout")
	attachmentCmd.AddCommand(attachmentDeleteCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringSlice("type", nil, "Asset types to include (e.g. feature, sample)")
	listCmd.Flags().StringSlice("product", nil, "Product ids the assets must apply to")
	listCmd.Flags().String("visibility", "", "Visibility the assets must have")
	listCmd.Flags().StringSlice("version", nil, "Product minimum versions to match")
	listCmd.Flags().Bool("unbounded", false, "Only assets with no maximum product version")
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringSlice("type", nil, "Asset types to search")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().String("type", "", "Attachment type (content, documentation, license_agreement, ...)")
	attachCmd.Flags().String("name", "", "Attachment name (default: the file name)")
	attachCmd.Flags().String("url", "", "Link this url instead of uploading a file")
	attachCmd.Flags().String("locale", "", "Attachment locale, e.g. en_US")
	attachCmd.Flags().Bool("replace", false, "Replace the existing attachment with the same name")
	rootCmd.AddCommand(attachmentCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
