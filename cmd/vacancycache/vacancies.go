package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/amishk599/vacancycache/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(1, 0, 1, 2)

	itemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var vacanciesCmd = &cobra.Command{
	Use:   "vacancies",
	Short: "List cached vacancies",
	Long:  "Print the cached vacancy snapshot. On a cold cache the snapshot is fetched first.",
	RunE:  runVacancies,
}

func init() {
	rootCmd.AddCommand(vacanciesCmd)
}

func runVacancies(cmd *cobra.Command, args []string) error {
	cfg, logger := bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Cache)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	list, err := buildService(cfg, st, logger).GetVacancies(ctx)
	if err != nil {
		logger.Error("failed to read vacancies", "error", err)
		os.Exit(1)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderVacancies(list))
	return nil
}

func renderVacancies(list []model.Vacancy) string {
	out := headerStyle.Render(fmt.Sprintf("%d published vacancies", len(list))) + "\n"
	for _, v := range list {
		desc, _ := v.FullDescription()
		line := fmt.Sprintf("%-10s %s %s", v.Shortcode(), v.Title(),
			dimStyle.Render(fmt.Sprintf("(%d chars)", len(desc))))
		out += itemStyle.Render(line) + "\n"
	}
	return out
}
