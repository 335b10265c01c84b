package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/folio-site/folio"
)

func init() {
	syncCmd := &cobra.Command{
		Use:   "sync-images",
		Short: "Mirror project thumbnails and body images into durable storage",
		RunE:  runSyncImages,
	}
	syncCmd.Flags().Bool("force", false, "Clear each project's mirror before syncing")
	syncCmd.Flags().StringP("project", "p", "", "Only sync the project with this slug")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "clear-images <slug>",
		Short: "Delete a project's mirrored images and manifest entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runClearImages,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "manifest",
		Short: "Print the asset manifest as JSON",
		RunE:  runManifest,
	})
}

func runSyncImages(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	project, _ := cmd.Flags().GetString("project")

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.SyncImages(cmd.Context(), folio.SyncOptions{Force: force, Project: project})
	if err != nil {
		return err
	}
	if err := printJSON(cmd, report); err != nil {
		return err
	}
	if report.Stats.Failed > 0 {
		return fmt.Errorf("%d of %d projects failed", report.Stats.Failed, report.Stats.Total)
	}
	return nil
}

func runClearImages(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Mirror().Clear(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", args[0])
	return nil
}

func runManifest(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.Mirror().Entries(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, entries)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
