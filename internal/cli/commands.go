package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/zenwen/etfadvisor/config"
	"github.com/zenwen/etfadvisor/internal/advisor"
	"github.com/zenwen/etfadvisor/internal/debug"
	"github.com/zenwen/etfadvisor/internal/display"
	"github.com/zenwen/etfadvisor/internal/portfolio"
	"github.com/zenwen/etfadvisor/internal/report"
)

const version = "1.0.0"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "etfadvisor",
		Short: "ETF Advisor - 每日ETF定投决策",
		Long: `ETF Advisor runs a daily pipeline over your configured fund pool:
candle history with multi-source failover, technical indicators, valuation
percentile, sector news, an optional LLM read, and a rule-based sizing
decision, delivered as an HTML digest.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config %s: %w", cfgPath, err)
				}
				*cfg = *loaded
			}
			if flagDebug, _ := cmd.Flags().GetBool("debug"); flagDebug {
				cfg.Debug = true
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fund, err := PromptForFund(cfg)
			if err != nil {
				return err
			}
			return runSingle(cfg, fund.Code)
		},
	}

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newScheduleCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Configuration file path (YAML)")

	return rootCmd
}

// newRunCmd creates the full batch run command.
func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full daily batch over all configured funds",
		RunE: func(cmd *cobra.Command, args []string) error {
			noMail, _ := cmd.Flags().GetBool("no-mail")
			return runBatch(cfg, !noMail)
		},
	}
	cmd.Flags().Bool("no-mail", false, "Skip mail delivery even when SMTP is configured")
	return cmd
}

// newAnalyzeCmd creates the single fund command.
func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [CODE]",
		Short: "Analyze one configured fund by its 6-digit code",
		Long: `Analyze a single fund from the configured pool.
Example: etfadvisor analyze 510880`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingle(cfg, args[0])
		},
	}
}

// newScheduleCmd creates the cron scheduler command.
func newScheduleCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the batch on the configured cron schedule",
		Long: `Keep the process alive and run the full batch on the cron
expression from schedule_cron (default: 17:30 on trading days).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cron.New()
			_, err := c.AddFunc(cfg.ScheduleCron, func() {
				if err := runBatch(cfg, true); err != nil {
					log.Printf("[Schedule] batch run failed: %v", err)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", cfg.ScheduleCron, err)
			}

			log.Printf("[Schedule] started, cron %q", cfg.ScheduleCron)
			c.Start()
			defer c.Stop()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Printf("[Schedule] shutting down")
			return nil
		},
	}
}

// newConfigCmd creates the config command group.
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("✅ Configuration is valid")
			return nil
		},
	})
	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ETF Advisor v%s\n", version)
			fmt.Println("Daily ETF investment advisory pipeline")
		},
	}
}

// runBatch executes the daily pipeline over all configured funds and
// handles report delivery.
func runBatch(cfg *config.Config, mail bool) error {
	ctx := context.Background()

	dbg := debug.NewEinoDebugger(cfg)
	if err := dbg.Initialize(); err != nil {
		log.Printf("[CLI] eino debug unavailable: %v", err)
	}

	adv, err := advisor.New(ctx, cfg)
	if err != nil {
		return err
	}

	rep := adv.Run(ctx)
	fmt.Println(display.Summary(rep))

	path, err := report.Save(rep, filepath.Join(cfg.DataDir, "reports"))
	if err != nil {
		return err
	}
	fmt.Println(display.Info("报告已保存: " + path))

	ledger := portfolio.NewLedger(cfg.DataDir)
	if err := ledger.Append(rep); err != nil {
		log.Printf("[CLI] ledger append failed: %v", err)
	}

	if mail && cfg.MailEnabled() {
		html, err := report.Render(rep)
		if err != nil {
			return err
		}
		if err := report.SendMail(cfg, report.Subject(rep.Date), html); err != nil {
			log.Printf("[CLI] mail delivery failed: %v", err)
			fmt.Println(display.Error("邮件发送失败: " + err.Error()))
		} else {
			fmt.Println(display.Info("简报已发送至 " + cfg.MailTo))
		}
	}
	return nil
}

// runSingle narrows the pool to one fund and runs the same pipeline.
func runSingle(cfg *config.Config, code string) error {
	var picked *config.Fund
	for i := range cfg.Funds {
		if cfg.Funds[i].Code == code {
			picked = &cfg.Funds[i]
			break
		}
	}
	if picked == nil {
		return fmt.Errorf("fund %s is not in the configured pool, run 'etfadvisor config show'", code)
	}

	single := *cfg
	single.Funds = []config.Fund{*picked}

	ctx := context.Background()
	adv, err := advisor.New(ctx, &single)
	if err != nil {
		return err
	}
	fmt.Println(display.Summary(adv.Run(ctx)))
	return nil
}

// showConfig displays the current configuration.
func showConfig(cfg *config.Config) {
	fmt.Println("📋 Current ETF Advisor Configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Printf("Data Directory:       %s\n", cfg.DataDir)
	fmt.Printf("Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Println()
	fmt.Printf("Base Invest Amount:   %d CNY\n", cfg.BaseInvestAmount)
	fmt.Printf("Max Daily Invest:     %d CNY\n", cfg.MaxDailyInvest)
	fmt.Printf("RSI Buy Threshold:    %.0f\n", cfg.RSIBuyThreshold)
	fmt.Printf("RSI Sell Threshold:   %.0f\n", cfg.RSISellThreshold)
	fmt.Printf("Schedule Cron:        %s\n", cfg.ScheduleCron)
	fmt.Println()
	fmt.Printf("LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Printf("LLM Model:            %s\n", cfg.LLMModel)
	if cfg.AnalystEnabled() {
		fmt.Println("LLM API:              ✅ Configured")
	} else {
		fmt.Println("LLM API:              ❌ Not configured (rule-only mode)")
	}
	if cfg.MailEnabled() {
		fmt.Printf("Mail:                 ✅ %s\n", cfg.MailTo)
	} else {
		fmt.Println("Mail:                 ❌ Not configured")
	}
	if cfg.LongportEnabled() {
		fmt.Println("Longport API:         ✅ Configured")
	} else {
		fmt.Println("Longport API:         ❌ Not configured")
	}
	fmt.Println()
	fmt.Printf("Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
	fmt.Printf("Eino Debug:           %t\n", cfg.EinoDebugEnabled)
	fmt.Println()
	fmt.Printf("Funds (%d):\n", len(cfg.Funds))
	for _, f := range cfg.Funds {
		fmt.Printf("  %s  %s  [%s]\n", f.Code, f.Name, f.SectorKeyword)
	}
}
