package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/andreyvit/kvrel"
	"github.com/andreyvit/kvrel/stores/pgstore"
	"github.com/andreyvit/kvrel/stores/redisstore"
)

type arguments struct {
	Backend     string
	Path        string
	RedisAddr   string
	PostgresDSN string
	Database    string
	Models      string
	Encoding    string
	Verbose     bool
}

func printUsage() {
	log.Println("kvrel - relational records over a key-value store")
	log.Println("\nUsage:")
	log.Println("  kvrel [options] <command> [args]")
	log.Println("\nCommands:")
	log.Println("  databases                    list databases in the store")
	log.Println("  tables                       list tables in the database")
	log.Println("  dump                         print every table")
	log.Println("  stats <table>                print table statistics")
	log.Println("  select <table> [selector]    print records (selector: id, id list or empty)")
	log.Println("  insert <table> k=v...        insert a record")
	log.Println("  remove <table> <selector>    remove records")
	log.Println("  drop <table>                 drop a table and its counter")
	log.Println("  load <model> [selector]      load objects with associations (needs -models)")
	log.Println("  export <file>                write a snapshot of the database")
	log.Println("  import <file>                restore a snapshot into the database")
	log.Println("\nOptions:")
	flag.PrintDefaults()
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func main() {
	log.SetFlags(0)

	var args arguments
	flag.StringVar(&args.Backend, "backend", envOr("KVREL_BACKEND", "bolt"), "Store backend (bolt, redis, postgres)")
	flag.StringVar(&args.Path, "path", envOr("KVREL_PATH", "kvrel.db"), "Bolt database file")
	flag.StringVar(&args.RedisAddr, "redis", envOr("KVREL_REDIS_ADDR", "localhost:6379"), "Redis address")
	flag.StringVar(&args.PostgresDSN, "postgres", os.Getenv("KVREL_POSTGRES_DSN"), "PostgreSQL connection string")
	flag.StringVar(&args.Database, "db", envOr("KVREL_DATABASE", kvrel.DefaultDatabase), "Database name")
	flag.StringVar(&args.Models, "models", os.Getenv("KVREL_MODELS"), "Models YAML file")
	flag.StringVar(&args.Encoding, "encoding", "msgpack", "Snapshot encoding (msgpack, json)")
	flag.BoolVar(&args.Verbose, "verbose", false, "Log every store operation")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}

	logger := newLogger(args.Verbose)
	defer logger.Sync()

	store, err := openStore(&args)
	if err != nil {
		logger.Fatalw("cannot open store", "backend", args.Backend, "error", err)
	}
	db, err := kvrel.Open(store, kvrel.Options{
		Database: args.Database,
		Logf:     logger.Infof,
		Verbose:  args.Verbose,
	})
	if err != nil {
		logger.Fatalw("cannot open database", "database", args.Database, "error", err)
	}
	defer db.Close()

	if err := run(db, &args, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Errorw("command failed", "command", flag.Arg(0), "error", err)
		db.Close()
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger.Sugar()
}

func openStore(args *arguments) (kvrel.Store, error) {
	switch args.Backend {
	case "bolt":
		return kvrel.OpenBolt(args.Path, kvrel.BoltOptions{})
	case "redis":
		return redisstore.Open(redisstore.Options{Addr: args.RedisAddr})
	case "postgres", "pg":
		if args.PostgresDSN == "" {
			return nil, fmt.Errorf("-postgres or KVREL_POSTGRES_DSN is required")
		}
		return pgstore.Open(pgstore.Options{DSN: args.PostgresDSN})
	case "memory":
		return kvrel.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", args.Backend)
	}
}
