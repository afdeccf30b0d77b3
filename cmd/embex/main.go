// Package main is the embex CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/embex/internal/builder"
	"github.com/hyperjump/embex/internal/cli"
	"github.com/hyperjump/embex/internal/config"
	"github.com/hyperjump/embex/internal/corpus"
	"github.com/hyperjump/embex/internal/embedding"
	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/reduction"
	"github.com/hyperjump/embex/internal/server"
	"github.com/hyperjump/embex/internal/service"
	"github.com/hyperjump/embex/internal/similarity"
	"github.com/hyperjump/embex/internal/storage"
	"github.com/hyperjump/embex/internal/tui"
	"github.com/hyperjump/embex/internal/watcher"
	"github.com/hyperjump/embex/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/embex/config.yaml"

// errUsage marks errors whose message is the command's usage.
var errUsage = errors.New("usage")

// loadConfig loads config from path. When path is the default, ./config.yaml is
// preferred if present, and a missing default file yields the built-in defaults.
// Returns the config and the path actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				cfg, err := config.Load(local)
				return cfg, local, err
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.Default()
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(command string, args []string, stdout io.Writer) error {
	switch command {
	case "server":
		return runServer(args)
	case "similar":
		return runSimilar(args, stdout)
	case "compare":
		return runCompare(args, stdout)
	case "embed":
		return runEmbed(args, stdout)
	case "neighborhood":
		return runNeighborhood(args, stdout)
	case "cache":
		return runCache(args, stdout)
	case "status":
		return runStatus(args, stdout)
	case "tui":
		return runTUI(args)
	case "build-tfidf":
		return runBuildTFIDF(args, stdout)
	case "import-freq":
		return runImportFreq(args, stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "embex version %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	}
	fmt.Fprintf(stdout, "Unknown command: %s\n", command)
	printUsage(stdout)
	return errUsage
}

// modelPaths resolves the artifact paths of cfg to absolute paths.
func modelPaths(cfg *config.Config) embedding.Paths {
	abs := func(file string) string {
		p := cfg.Models.Path(file)
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}
	return embedding.Paths{
		TFIDF:    abs(cfg.Models.TFIDFFile),
		CBOW:     abs(cfg.Models.CBOWFile),
		SkipGram: abs(cfg.Models.SkipGramFile),
		Lexicon:  abs(cfg.Models.LexiconFile),
	}
}

// newService wires the model store and both engines behind the service facade.
func newService(cfg *config.Config, logger *zap.Logger) *service.Service {
	store := embedding.NewStore(modelPaths(cfg), embedding.WithLogger(logger))

	proj := reduction.NewGonumProjector(logger)
	proj.Iterations = cfg.Reduction.TSNEIterations
	proj.LearningRate = cfg.Reduction.TSNELearningRate
	proj.Seed = cfg.Reduction.Seed

	red := reduction.NewEngine(store,
		reduction.WithLogger(logger),
		reduction.WithProjector(proj),
		reduction.WithCacheCapacity(cfg.Reduction.CacheCapacity))
	sim := similarity.NewEngine(store,
		similarity.WithLogger(logger),
		similarity.WithSuggestions(cfg.Similarity.Suggestions),
		similarity.WithSuggestionMinFrequency(cfg.Similarity.SuggestionMinFrequency))
	return service.New(store, sim, red, service.WithLogger(logger))
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "reload models when their artifacts change")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.String("models_dir", cfg.Models.Dir),
		zap.Bool("debug", debugMode))

	svc := newService(cfg, logger)
	defer svc.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Models.Watch || *watch {
		w := watcher.NewWatcher(modelPaths(cfg).All(), func(path string) {
			svc.ReloadArtifact(path)
		}, watcher.WithLogger(logger))
		if err := w.Start(watchCtx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()
	}

	srv := server.NewServer(svc, cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sigChan:
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

// clientFlags are shared by the subcommands that talk to a running server.
type clientFlags struct {
	configPath *string
	serverURL  *string
	output     *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path (for the default server URL)"),
		serverURL:  fs.String("server", "", "API base URL (default from config, e.g. http://127.0.0.1:8000/api)"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

func (f clientFlags) client() (*cli.Client, cli.OutputFormat, error) {
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		return nil, "", err
	}
	url := *f.serverURL
	timeout := time.Duration(0)
	if url == "" {
		cfg, _, err := loadConfig(*f.configPath)
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		url, timeout = cfg.Server.BaseURL(), cfg.Server.RequestTimeout
	}
	return cli.NewClient(url, timeout), format, nil
}

// reorderArgs moves flags that follow the positional arguments to the front so
// that "embex similar cat -topn 5" parses -topn.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			out := make([]string, 0, len(args))
			out = append(out, args[i:]...)
			return append(out, args[:i]...)
		}
	}
	return args
}

func runSimilar(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("similar", flag.ContinueOnError)
	cf := addClientFlags(fs)
	model := fs.String("model", string(models.ModelTFIDF), "model: tfidf, word2vec_cbow or word2vec_skipgram")
	topN := fs.Int("topn", 10, "number of neighbours")
	if err := fs.Parse(reorderArgs(args)); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: embex similar [flags] <word>")
		return errUsage
	}
	t, err := models.ParseModelType(*model)
	if err != nil {
		return err
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	res, err := c.Similar(context.Background(), fs.Arg(0), t, *topN)
	if err != nil {
		return err
	}
	return cli.Write(stdout, res, format)
}

func runCompare(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	cf := addClientFlags(fs)
	topN := fs.Int("topn", 10, "number of neighbours per model")
	if err := fs.Parse(reorderArgs(args)); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: embex compare [flags] <word>")
		return errUsage
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	res, err := c.Compare(context.Background(), fs.Arg(0), *topN)
	if err != nil {
		return err
	}
	return cli.Write(stdout, res, format)
}

func runEmbed(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	cf := addClientFlags(fs)
	method := fs.String("method", string(models.MethodPCA), "reduction method: pca or tsne")
	numWords := fs.Int("num-words", 500, "number of most frequent words to project")
	perplexity := fs.Int("perplexity", 30, "t-SNE perplexity")
	if err := fs.Parse(reorderArgs(args)); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: embex embed [flags] <model>")
		return errUsage
	}
	t, err := models.ParseModelType(fs.Arg(0))
	if err != nil {
		return err
	}
	m, err := models.ParseMethod(*method)
	if err != nil {
		return err
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	res, err := c.Embeddings(context.Background(), models.ReductionQuery{
		Model: t, Method: m, NumWords: *numWords, Perplexity: *perplexity,
	})
	if err != nil {
		return err
	}
	return cli.Write(stdout, res, format)
}

func runNeighborhood(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("neighborhood", flag.ContinueOnError)
	cf := addClientFlags(fs)
	model := fs.String("model", string(models.ModelTFIDF), "model: tfidf, word2vec_cbow or word2vec_skipgram")
	method := fs.String("method", string(models.MethodPCA), "reduction method: pca or tsne")
	neighbors := fs.Int("neighbors", 20, "number of neighbours")
	perplexity := fs.Int("perplexity", 30, "t-SNE perplexity")
	if err := fs.Parse(reorderArgs(args)); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: embex neighborhood [flags] <word>")
		return errUsage
	}
	t, err := models.ParseModelType(*model)
	if err != nil {
		return err
	}
	m, err := models.ParseMethod(*method)
	if err != nil {
		return err
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	res, err := c.Neighborhood(context.Background(), models.NeighborhoodQuery{
		Word: fs.Arg(0), Model: t, Method: m, NumNeighbors: *neighbors, Perplexity: *perplexity,
	})
	if err != nil {
		return err
	}
	return cli.Write(stdout, res, format)
}

func runCache(args []string, stdout io.Writer) error {
	if len(args) < 1 || args[0] != "clear" {
		fmt.Fprintln(stdout, "Usage: embex cache clear [flags]")
		return errUsage
	}
	fs := flag.NewFlagSet("cache clear", flag.ContinueOnError)
	cf := addClientFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	c, _, err := cf.client()
	if err != nil {
		return err
	}
	msg, err := c.ClearCache(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, msg)
	return nil
}

func runStatus(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	c, format, err := cf.client()
	if err != nil {
		return err
	}
	st, err := c.Status(context.Background())
	if err != nil {
		return err
	}
	return cli.Write(stdout, st, format)
}

func runTUI(args []string) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	cf := addClientFlags(fs)
	topN := fs.Int("topn", 10, "number of neighbours")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	c, _, err := cf.client()
	if err != nil {
		return err
	}
	return tui.Run(c, *topN)
}

func runBuildTFIDF(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("build-tfidf", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	corpusDir := fs.String("corpus", "", "corpus directory (default build.corpus_dir)")
	dims := fs.Int("dims", 0, "LSA dimensions (default build.dimensions)")
	saveConfig := fs.Bool("save-config", false, "write the effective build settings back to the config file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *corpusDir != "" {
		cfg.Build.CorpusDir = *corpusDir
	}
	if *dims > 0 {
		cfg.Build.Dimensions = *dims
	}
	if cfg.Build.CorpusDir == "" {
		fmt.Fprintln(fs.Output(), "Usage: embex build-tfidf -corpus DIR [flags]")
		return errUsage
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	paths := modelPaths(cfg)
	lex, err := storage.NewSQLiteStorage(paths.Lexicon)
	if err != nil {
		return fmt.Errorf("open lexicon: %w", err)
	}
	defer lex.Close()

	reader := corpus.NewReader(cfg.Build.Extensions,
		corpus.NewChunker(cfg.Build.ChunkSize, cfg.Build.ChunkOverlap),
		corpus.WithLogger(logger))
	b := builder.New(reader, lex, builder.Options{
		Dimensions:    cfg.Build.Dimensions,
		MinWordLength: cfg.Build.MinWordLength,
		StopWords:     cfg.Build.StopWords,
	}, builder.WithLogger(logger))
	build, err := b.Build(context.Background(), cfg.Build.CorpusDir, paths.TFIDF)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Built %s: %d words x %d dims from %d documents\n",
		paths.TFIDF, build.VocabSize, build.Dimensions, build.Documents)

	if *saveConfig {
		if resolved == "" {
			resolved = "config.yaml"
		}
		if err := config.Save(resolved, cfg); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Config saved to %s\n", resolved)
	}
	return nil
}

func runImportFreq(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import-freq", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	merge := fs.Bool("merge", false, "upsert into the existing table instead of replacing it")
	if err := fs.Parse(reorderArgs(args)); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: embex import-freq [flags] FILE.tsv")
		return errUsage
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	lexPath := modelPaths(cfg).Lexicon
	lex, err := storage.NewSQLiteStorage(lexPath)
	if err != nil {
		return fmt.Errorf("open lexicon: %w", err)
	}
	defer lex.Close()
	n, err := builder.ImportFrequencies(context.Background(), lex, f, !*merge)
	if err != nil {
		return fmt.Errorf("import %s: %w", fs.Arg(0), err)
	}
	fmt.Fprintf(stdout, "Imported %d word frequencies into %s\n", n, lexPath)
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `embex - word embedding explorer (TF-IDF/LSA, Word2Vec CBOW, Word2Vec Skip-Gram)

Usage:
  embex server [flags]                 Start the HTTP API
  embex similar [flags] <word>         Nearest neighbours of a word
  embex compare [flags] <word>         Nearest neighbours under every model
  embex embed [flags] <model>          2-D projection of the most frequent words
  embex neighborhood [flags] <word>    2-D projection of a word and its neighbours
  embex cache clear                    Empty the server's projection cache
  embex status [flags]                 Show server, model and build status
  embex tui [flags]                    Interactive terminal explorer
  embex build-tfidf -corpus DIR        Build the TF-IDF (LSA) model from a corpus
  embex import-freq FILE.tsv           Load word frequencies (word<TAB>count)
  embex version                        Show version
  embex help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/embex/config.yaml, or ./config.yaml)
  --debug            Enable debug logging
  --watch            Reload models when their artifacts change

Client Flags (similar, compare, embed, neighborhood, cache, status, tui):
  --server string    API base URL (default from config: http://127.0.0.1:8000/api)
  --output string    Output format: text or json (default: text)

Examples:
  embex server
  embex similar cat -model word2vec_cbow -topn 5
  embex compare king
  embex embed word2vec_skipgram -method tsne -num-words 300
  embex neighborhood -model tfidf -method tsne car
  embex build-tfidf -corpus ./corpus -dims 200
  embex import-freq frequencies.tsv`)
}
