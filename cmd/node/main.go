package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yiqi-017/powseal/config"
	"github.com/yiqi-017/powseal/core"
	"github.com/yiqi-017/powseal/crypto"
	"github.com/yiqi-017/powseal/metrics"
)

// 简易 CLI：挖创世块及后继区块，或单独计算 Merkle 根
// 示例：
//
//	go run ./cmd/node mine --difficulty 2 --blocks 3
//	go run ./cmd/node mine --tx "Transaction 1" --tx "Transaction 2" --workers 4
//	go run ./cmd/node merkle "Hello World" MerkleNode MerkleTree "Test data"
func main() {
	if err := Run(os.Args[1:]); err != nil {
		slog.Error("node failed", "error", err.Error())
		os.Exit(1)
	}
}

// Run 解析参数并执行指令，便于测试复用；Ctrl-C 会中断正在进行的搜索
func Run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "node",
		Short:         "Seal Merkle-committed proof-of-work blocks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMineCmd(), newMerkleCmd())
	return root
}

func newMineCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine a genesis block followed by linked successors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return errors.Wrap(err, "bind flags")
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return mine(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "配置文件路径（yaml/json/toml）")
	flags.Uint32(config.KeyDifficulty, 2, "POW 难度（哈希前导零字节数，0-32）")
	flags.Int(config.KeyBlocks, 2, "要挖的区块数（含创世块）")
	flags.Uint64(config.KeyMaxAttempts, 0, "每个区块的哈希尝试上限，0 表示不限")
	flags.Int(config.KeyWorkers, 1, "并行搜索的 worker 数")
	flags.String(config.KeyLogLevel, "info", "日志级别 debug|info|warn|error")
	flags.StringArray(config.KeyTransactions, nil, "交易内容，可重复；默认使用演示交易")
	flags.String(config.KeyMetricsAddr, "", "挖矿期间暴露 /metrics 的监听地址")
	return cmd
}

// mine 挖创世块并依次挖出后继区块，逐个打印摘要
func mine(ctx context.Context, out, logOut io.Writer, cfg *config.MineConfig) error {
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: lvl}))

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	records := cfg.Records()
	if records == nil {
		records = core.DefaultGenesisRecords()
	}
	opts := []core.Option{
		core.WithMaxAttempts(cfg.MaxAttempts),
		core.WithWorkers(cfg.Workers),
		core.WithObserver(collector),
		core.WithLogger(logger),
	}

	genesis, err := core.Mine(ctx, records, nil, cfg.Difficulty, opts...)
	if err != nil {
		return errors.WithMessage(err, "mine genesis")
	}
	logger.Info("genesis sealed", "hash", genesis.Hash().String())
	printBlock(out, "Genesis Block", genesis)

	chain, err := core.NewChain(genesis)
	if err != nil {
		return err
	}
	for i := 1; i < cfg.Blocks; i++ {
		block, err := chain.MineNext(ctx, records, opts...)
		if err != nil {
			return errors.WithMessagef(err, "mine block %d", i)
		}
		logger.Info("block sealed", "height", i, "hash", block.Hash().String())
		fmt.Fprintln(out)
		printBlock(out, "Block "+strconv.Itoa(i), block)
	}
	return nil
}

func serveMetrics(addr string, g prometheus.Gatherer, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err.Error())
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printBlock(out io.Writer, title string, b *core.Block) {
	fmt.Fprintf(out, "%s:\n", title)
	fmt.Fprintf(out, "Index: %s\n", b.Index())
	fmt.Fprintf(out, "Timestamp: %s\n", b.Timestamp().UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(out, "Previous Hash: %s\n", b.PrevHash())
	fmt.Fprintf(out, "Transaction Data: %q\n", b.Transactions())
	fmt.Fprintf(out, "Merkle Root: %s\n", b.MerkleRoot())
	fmt.Fprintf(out, "Nonce: %s\n", b.Nonce())
	fmt.Fprintf(out, "Hash: %s\n", b.Hash())
}

func newMerkleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merkle RECORD...",
		Short: "Print the Merkle root of the given records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records := make([][]byte, len(args))
			for i, a := range args {
				records[i] = []byte(a)
			}
			tree, err := core.NewMerkleTree(records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merkle Root: %s\nLeaves: %d\nDepth: %d\n",
				crypto.HexEncode(tree.Root().Bytes()), tree.LeafCount(), tree.Depth())
			return nil
		},
	}
}
