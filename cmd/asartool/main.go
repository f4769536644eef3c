// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

// Command asartool lists, extracts, and patches Electron asar archives.
package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/woozymasta/pathrules"

	"github.com/bendi11/asar"
)

// downloadTimeout bounds the --url payload fetch.
const downloadTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "asartool",
	Short: "Inspect and patch Electron asar archives",
	Long: `asartool reads, extracts, and patches Electron asar archives.

Supported operations:
  - List archive entries, optionally filtered by glob rules
  - Extract entries to a directory
  - Inject a CSS/JS customization block into a script entry
  - Restore an archive from the backup made by patch`,
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List archive entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := asar.Open(args[0])
		if err != nil {
			return err
		}

		includes, err := cmd.Flags().GetStringArray("include")
		if err != nil {
			return err
		}

		entries, err := a.List(asar.ListOptions{Rules: includeRules(includes)})
		if err != nil {
			return err
		}

		for _, e := range entries {
			marker := ""
			if e.Unpacked {
				marker = " (unpacked)"
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%10d  %s%s\n", e.Size, e.Path, marker)
		}

		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <archive> <dstdir>",
	Short: "Extract archive entries to a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := asar.Open(args[0])
		if err != nil {
			return err
		}

		includes, err := cmd.Flags().GetStringArray("include")
		if err != nil {
			return err
		}

		workers, err := cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}

		var count atomic.Int64
		err = a.Extract(cmd.Context(), args[1], asar.ExtractOptions{
			Rules:      includeRules(includes),
			MaxWorkers: workers,
			OnEntryDone: func(entry asar.EntryInfo, written int64, outputPath string) {
				count.Add(1)
			},
			SkipUnpacked: true,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "extracted %d entries to %s\n", count.Load(), args[1])
		return nil
	},
}

var patchCmd = &cobra.Command{
	Use:   "patch <archive>",
	Short: "Inject the CSS/JS customization block into the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		css, err := loadCSSPayload(cmd)
		if err != nil {
			return err
		}

		js, err := loadJSPayload(cmd)
		if err != nil {
			return err
		}

		opts := asar.PatchOptions{
			Injection:       asar.InjectionConfig{Anchor: viper.GetString("anchor")},
			RefreshPayloads: viper.GetBool("refresh"),
			BackupKeep:      viper.GetInt("backup_keep"),
		}

		res, err := asar.PatchFile(cmd.Context(), args[0], viper.GetString("target"), css, js, opts)
		if err != nil {
			return err
		}

		switch res.Outcome {
		case asar.OutcomeAlreadyPatched:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: already patched, nothing to do (use --refresh to replace payloads)\n", args[0])
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s (%d -> %d bytes)\n",
				args[0], res.Outcome, res.Target, res.OldSize, res.NewSize)
		}

		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore the archive from its backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := asar.RestoreBackup(args[0]); err != nil {
			if errors.Is(err, asar.ErrNoBackup) {
				return fmt.Errorf("no backup found for %s, nothing to restore", args[0])
			}

			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "restored %s from backup\n", args[0])
		return nil
	},
}

// includeRules converts --include globs into include rules; empty means all.
func includeRules(includes []string) []pathrules.Rule {
	if len(includes) == 0 {
		return nil
	}

	rules := make([]pathrules.Rule, 0, len(includes))
	for _, pattern := range includes {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}

	return rules
}

// loadCSSPayload resolves the CSS payload from --css, --url, or the
// configured theme_url, then escapes it for template-literal embedding.
func loadCSSPayload(cmd *cobra.Command) (string, error) {
	cssPath, err := cmd.Flags().GetString("css")
	if err != nil {
		return "", err
	}

	themeURL := viper.GetString("theme_url")

	var raw string
	switch {
	case cssPath != "":
		data, err := os.ReadFile(cssPath)
		if err != nil {
			return "", fmt.Errorf("read css file: %w", err)
		}

		raw = string(data)
	case themeURL != "":
		raw, err = downloadPayload(cmd, themeURL)
		if err != nil {
			return "", err
		}
	default:
		return "", errors.New("no CSS payload: pass --css <file> or --url <url>")
	}

	return escapeTemplatePayload(raw), nil
}

// loadJSPayload resolves the JS payload from --js or the configured custom_js.
func loadJSPayload(cmd *cobra.Command) (string, error) {
	jsPath, err := cmd.Flags().GetString("js")
	if err != nil {
		return "", err
	}

	if jsPath != "" {
		data, err := os.ReadFile(jsPath)
		if err != nil {
			return "", fmt.Errorf("read js file: %w", err)
		}

		return string(data), nil
	}

	return viper.GetString("custom_js"), nil
}

// downloadPayload fetches the payload text over HTTP.
func downloadPayload(cmd *cobra.Command, url string) (string, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build payload request: %w", err)
	}

	client := &http.Client{Timeout: downloadTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download payload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download payload: %s returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read payload response: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "downloaded %d payload bytes from %s\n", len(body), url)
	return string(body), nil
}

// escapeTemplatePayload escapes backslashes and backticks so the payload
// survives embedding inside a JavaScript template literal.
func escapeTemplatePayload(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "`", "\\`")
}

func initConfig() {
	viper.SetConfigName("asartool")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(dir)
	}

	viper.SetEnvPrefix("ASARTOOL")
	viper.AutomaticEnv()

	// Missing config file is fine, flag and env values still apply.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		}
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	listCmd.Flags().StringArray("include", nil, "include glob pattern (repeatable)")
	extractCmd.Flags().StringArray("include", nil, "include glob pattern (repeatable)")
	extractCmd.Flags().Int("workers", 0, "number of extraction workers (0 = GOMAXPROCS)")

	patchCmd.Flags().String("css", "", "path to the CSS payload file")
	patchCmd.Flags().String("url", "", "URL to download the CSS payload from")
	patchCmd.Flags().String("js", "", "path to the JS payload file")
	patchCmd.Flags().String("target", "app/mainScreen.js", "entry path to patch")
	patchCmd.Flags().String("anchor", "", "override the injection anchor")
	patchCmd.Flags().Bool("refresh", false, "replace payloads of an already-patched entry")
	patchCmd.Flags().Int("backup-keep", asar.DefaultBackupKeep, "backup generations to keep")

	mustBindFlag("theme_url", patchCmd, "url")
	mustBindFlag("target", patchCmd, "target")
	mustBindFlag("anchor", patchCmd, "anchor")
	mustBindFlag("refresh", patchCmd, "refresh")
	mustBindFlag("backup_keep", patchCmd, "backup-keep")

	rootCmd.AddCommand(listCmd, extractCmd, patchCmd, restoreCmd)
}

// mustBindFlag binds one viper key to a cobra flag; binding only fails on
// a missing flag, which is a programming error.
func mustBindFlag(key string, cmd *cobra.Command, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
