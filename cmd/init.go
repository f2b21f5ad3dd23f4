package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacklau/issuecache/internal/config"
	"github.com/jacklau/issuecache/internal/pipeline"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup for issuecache configuration",
	Long:  `Creates a configuration file with guided prompts.`,
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Welcome to issuecache setup!")
	fmt.Fprintln(out, "This will create a configuration file for you.")
	fmt.Fprintln(out)

	configPath := cfgFile
	if configPath == "" {
		configPath = defaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "Config file already exists at %s\n", configPath)
		answer := prompt(reader, out, "Overwrite? [y/N]: ", "")
		answer = strings.ToLower(answer)
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	owner := prompt(reader, out, fmt.Sprintf("Repository owner [%s]: ", pipeline.DefaultOwner), pipeline.DefaultOwner)
	repo := prompt(reader, out, fmt.Sprintf("Repository name [%s]: ", pipeline.DefaultRepo), pipeline.DefaultRepo)
	storePath := prompt(reader, out, "Store file path (or press Enter for the default next to the binary): ", "")
	apiURL := prompt(reader, out, "GitHub API URL [https://api.github.com]: ", "")

	content := buildConfigYAML(owner, repo, storePath, apiURL)

	// Refuse to write something the loader would reject.
	if _, err := config.Parse([]byte(content)); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", configPath)
	fmt.Fprintln(out, "Export GITHUB_TOKEN (or GH_TOKEN) to raise the API rate limit.")
	return nil
}

// prompt prints label and returns the trimmed answer, or def when empty.
func prompt(reader *bufio.Reader, out io.Writer, label, def string) string {
	fmt.Fprint(out, label)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def
	}
	return answer
}

func buildConfigYAML(owner, repo, storePath, apiURL string) string {
	var b strings.Builder

	b.WriteString("# issuecache configuration\n")
	b.WriteString("# The API token is read from GITHUB_TOKEN or GH_TOKEN, never from this file.\n\n")

	b.WriteString("github:\n")
	if apiURL != "" {
		b.WriteString(fmt.Sprintf("  api_url: %s\n", apiURL))
	} else {
		b.WriteString("  # api_url: https://github.example.com/api/v3\n")
	}
	b.WriteString("  # user_agent: issuecache\n")
	b.WriteString("\n")

	b.WriteString("repo:\n")
	b.WriteString(fmt.Sprintf("  owner: %s\n", owner))
	b.WriteString(fmt.Sprintf("  name: %s\n", repo))
	b.WriteString("\n")

	b.WriteString("store:\n")
	if storePath != "" {
		b.WriteString(fmt.Sprintf("  path: %s\n", storePath))
	} else {
		b.WriteString("  # path: ~/.issuecache/issues.json\n")
	}
	b.WriteString("\n")

	b.WriteString("defaults:\n")
	b.WriteString("  request_timeout: 30s\n")
	b.WriteString("  comment_workers: 4\n")
	b.WriteString("  include_comments: true\n")
	b.WriteString("  max_body_length: 20000\n")
	b.WriteString("\n")

	b.WriteString("analyze:\n")
	b.WriteString("  top: 20\n")

	return b.String()
}
