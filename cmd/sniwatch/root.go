package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/nickproject/sniwatch/internal/aggregator"
	"github.com/nickproject/sniwatch/internal/capture"
	"github.com/nickproject/sniwatch/internal/config"
	"github.com/nickproject/sniwatch/internal/diagnose"
	"github.com/nickproject/sniwatch/internal/export"
	"github.com/nickproject/sniwatch/internal/filter"
	"github.com/nickproject/sniwatch/internal/logger"
	"github.com/nickproject/sniwatch/internal/monitor"
	"github.com/nickproject/sniwatch/internal/tui"
)

var (
	cfgFile         string
	cfg             *config.Config
	diagnoseCapture bool
	diagnoseSNI     bool
	testDomain      string
)

var rootCmd = &cobra.Command{
	Use:   "sniwatch [device]",
	Short: "按 TLS SNI 域名统计 HTTPS 流量",
	Long: `sniwatch 被动监听 443 端口的 TCP 流量，从 TLS ClientHello 中解析 SNI，
按域名实时展示每秒上下行速率与累计流量。

device 默认为 any（所有网卡，LINUX_SLL2 封装）。

诊断模式:
  --diagnose-capture   检查抓包环境（权限、网卡、libpcap、eBPF 过滤器）
  --diagnose-sni       发起一次 HTTPS 请求，检查 SNI 识别是否正常`,
	Args:          cobra.MaximumNArgs(1),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runMain,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")

	// 抓包选项
	rootCmd.Flags().StringP("backend", "b", "pcap", "抓包后端 (pcap|afpacket)")
	rootCmd.Flags().StringP("filter", "f", capture.DefaultBPFFilter, "BPF 过滤表达式 (仅 pcap)")
	rootCmd.Flags().Int("snaplen", 65535, "单个数据帧的最大抓取长度")
	rootCmd.Flags().Duration("read-timeout", 100*time.Millisecond, "单次读取的最长等待")
	rootCmd.Flags().Bool("promisc", false, "开启混杂模式")

	// 显示选项
	rootCmd.Flags().DurationP("refresh", "r", time.Second, "刷新间隔")
	rootCmd.Flags().Int("stall-limit", aggregator.DefaultStallLimit, "连续无流量多少个周期后隐藏连接")
	rootCmd.Flags().Int("columns", 120, "纯文本模式的行宽")
	rootCmd.Flags().StringSlice("include-domains", nil, "域名白名单 (逗号分隔，支持通配符)")
	rootCmd.Flags().StringSlice("exclude-domains", nil, "域名黑名单 (逗号分隔，支持通配符)")

	// 输出选项
	rootCmd.Flags().DurationP("duration", "d", 0, "运行时长后退出")
	rootCmd.Flags().StringP("output", "o", "", "退出时导出最后一个周期的统计")
	rootCmd.Flags().String("format", "json", "导出格式 (json|csv)")
	rootCmd.Flags().Bool("no-tui", false, "禁用 TUI，按周期输出纯文本")

	// 日志选项
	rootCmd.Flags().String("log-file", "", "日志文件路径")
	rootCmd.Flags().String("log-level", "warn", "日志级别 (debug|info|warn|error)")

	// 诊断选项
	rootCmd.Flags().BoolVar(&diagnoseCapture, "diagnose-capture", false, "运行抓包环境诊断")
	rootCmd.Flags().BoolVar(&diagnoseSNI, "diagnose-sni", false, "运行 SNI 识别自检")
	rootCmd.Flags().StringVar(&testDomain, "test-domain", "", "SNI 自检使用的测试域名 (默认: cloudflare.com)")

	bindFlags(map[string]string{
		"capture.backend":        "backend",
		"capture.bpf":            "filter",
		"capture.snaplen":        "snaplen",
		"capture.read_timeout":   "read-timeout",
		"capture.promisc":        "promisc",
		"display.refresh":        "refresh",
		"display.stall_limit":    "stall-limit",
		"display.columns":        "columns",
		"filter.include_domains": "include-domains",
		"filter.exclude_domains": "exclude-domains",
		"output.duration":        "duration",
		"output.file":            "output",
		"output.format":          "format",
		"output.no_tui":          "no-tui",
		"logging.file":           "log-file",
		"logging.level":          "log-level",
	})
}

func bindFlags(keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, rootCmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("绑定参数 %s 失败: %v", flag, err))
		}
	}
}

func initConfig() {
	cfg = config.Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.config/sniwatch")
		}
		viper.AddConfigPath("/etc/sniwatch")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SNIWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "读取配置文件错误: %v\n", err)
			os.Exit(1)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "解析配置错误: %v\n", err)
		os.Exit(1)
	}
}

// runMain 主入口，根据参数决定运行模式
func runMain(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		cfg.Device = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if diagnoseCapture {
		report := diagnose.RunCapture(captureConfig())
		return writeReport(report)
	}
	if diagnoseSNI {
		sniCfg := diagnose.DefaultSNIConfig()
		sniCfg.Capture = captureConfig()
		if testDomain != "" {
			sniCfg.TestDomain = testDomain
		}
		return writeReport(diagnose.RunSNI(sniCfg))
	}

	return runMonitor(cmd.Context())
}

func writeReport(report *diagnose.Report) error {
	if err := report.WriteJSON(os.Stdout); err != nil {
		return err
	}
	if report.Failed() {
		return errors.New(report.Summary)
	}
	return nil
}

func captureConfig() capture.Config {
	return capture.Config{
		Device:    cfg.Device,
		Backend:   cfg.Capture.Backend,
		BPFFilter: cfg.Capture.BPF,
		SnapLen:   cfg.Capture.SnapLen,
		Timeout:   cfg.Capture.ReadTimeout,
		Promisc:   cfg.Capture.Promisc,
	}
}

func runMonitor(parent context.Context) error {
	// 标准输出不是终端时无法使用 TUI
	noTUI := cfg.Output.NoTUI || !term.IsTerminal(int(os.Stdout.Fd()))

	logCfg := logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
		ToStderr:  noTUI,
	}
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Output.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Output.Duration)
		defer cancel()
	}

	src, err := capture.New(captureConfig())
	if err != nil {
		return fmt.Errorf("打开抓包失败: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("关闭抓包失败", "error", err)
		}
	}()

	table := aggregator.NewTable()
	producer, err := monitor.NewProducer(src, table)
	if err != nil {
		return err
	}

	hostname, _ := os.Hostname()
	ifaces, _ := capture.DiscoverInterfaces(nil)
	logger.Info("启动",
		"device", cfg.Device,
		"backend", cfg.Capture.Backend,
		"linktype", src.LinkType().String(),
		"interfaces", ifaces)

	g, gctx := errgroup.WithContext(ctx)

	var sink monitor.Sink
	if noTUI {
		lines := tui.NewLineSink(os.Stdout, cfg.Display.Columns)
		sink = lines
		g.Go(func() error { return lines.Run(gctx) })
	} else {
		prog := tui.NewProgram(tui.Config{
			Hostname:   hostname,
			Device:     cfg.Device,
			Backend:    cfg.Capture.Backend,
			Interfaces: ifaces,
		})
		sink = prog
		g.Go(func() error {
			if err := prog.Run(gctx); err != nil {
				return fmt.Errorf("TUI 错误: %w", err)
			}
			return nil
		})
	}

	consumer := monitor.NewConsumer(table, sink, monitor.ConsumerConfig{
		Interval:   cfg.Display.Refresh,
		StallLimit: cfg.Display.StallLimit,
		Filter:     filter.New(cfg.Filter.IncludeDomains, cfg.Filter.ExcludeDomains),
	})

	started := time.Now()
	g.Go(func() error { return producer.Run(gctx) })
	g.Go(func() error { return consumer.Run(gctx) })

	runErr := g.Wait()
	logger.Info("退出", "stats", producer.Stats(), "dropped_frames", consumer.Dropped())

	if err := exportReport(consumer.LastGroups(), started); err != nil {
		return multierr.Append(runErr, err)
	}
	return runErr
}

func exportReport(groups []aggregator.Group, started time.Time) error {
	if cfg.Output.File == "" || len(groups) == 0 {
		return nil
	}
	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	report := export.NewReport(cfg.Device, started, groups)
	if err := export.Export(report, cfg.Output.File, format); err != nil {
		return fmt.Errorf("导出失败: %w", err)
	}
	logger.Info("数据已导出", "file", cfg.Output.File)
	return nil
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
