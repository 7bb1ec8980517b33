// Command planner generates a single training plan from the command line:
// read a goal, run the generation pipeline once, print the plan JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/runassist/planner/internal/backend"
	"github.com/runassist/planner/internal/config"
	"github.com/runassist/planner/internal/engine"
	"github.com/runassist/planner/internal/service"
)

func main() {
	goal := flag.String("goal", "", "training goal (e.g. \"5K under 25:00\"); read from stdin when empty")
	horizon := flag.Int("horizon", 8, "plan horizon in weeks")
	sessions := flag.Int("sessions", 4, "training sessions per week")
	maxTokens := flag.Int("max-tokens", 0, "token budget (default from config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := run(*goal, *horizon, *sessions, *maxTokens); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(goal string, horizon, sessions, maxTokens int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = cfg.DefaultMaxTokens
	}

	if goal == "" {
		fmt.Print("Enter goal (e.g., \"5K under 25:00\"): ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading goal: %w", err)
		}
		goal = strings.TrimSpace(line)
	}
	if goal == "" {
		return fmt.Errorf("no goal given")
	}

	eng := engine.New(&backend.Scripted{Reply: devReply(goal)})
	if err := eng.Init(cfg.ModelPath, cfg.ContextSize, cfg.AccelLayers); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer eng.Shutdown()

	planner := service.NewPlannerService(eng)

	profile := minimalProfile(goal, horizon, sessions)
	planText, err := planner.GeneratePlan(context.Background(), profile, maxTokens)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Training Plan (JSON) ===")
	fmt.Println(planText)
	return nil
}

// minimalProfile keeps the profile tiny; callers with richer data send their
// own profile JSON through the service API instead.
func minimalProfile(goal string, horizon, sessions int) string {
	g, _ := json.Marshal(goal)
	return fmt.Sprintf(`{"goal":%s,"horizon_weeks":%d,"sessions_per_week":%d}`,
		g, horizon, sessions)
}

// devReply is the scripted backend's canned continuation: a slightly messy
// plan (code fence, truncated array) so the recovery pipeline has work to do.
func devReply(goal string) string {
	g, _ := json.Marshal(goal)
	return "```json\n" +
		fmt.Sprintf(`{"goal":%s,"weeks":[{"week":1,"sessions":["easy run","strength","intervals"]}`, g) +
		"\n```\n"
}
