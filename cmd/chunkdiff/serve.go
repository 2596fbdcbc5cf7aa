package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"

	"github.com/arlobridge/chunkdiff/pkg/db"
	"github.com/arlobridge/chunkdiff/pkg/httpserver"
	"github.com/arlobridge/chunkdiff/pkg/storage"
)

type serveOpts struct {
	listenAddr     string
	publicURL      string
	dbFile         string
	s3Endpoint     string
	s3AccessKey    string
	s3AccessSecret string
	s3Bucket       string
	maxCacheBytes  uint64
}

var srvOpts serveOpts

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web viewer, ingesting revisions and rendering reconstructed chains",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// defaultEnv looks up an environment variable override for a flag
// default, matching the teacher's main.go helper of the same name.
func defaultEnv(s, def string) string {
	if v, ok := os.LookupEnv(s); ok {
		return v
	}
	return def
}

// envFlagName mirrors the teacher's stringVar: FLAG-NAME -> FLAG_NAME.
func envFlagName(flag string) string {
	return strings.ReplaceAll(strings.ToUpper(flag), "-", "_")
}

func init() {
	fs := serveCmd.Flags()
	fs.StringVar(&srvOpts.listenAddr, "listen-addr", defaultEnv(envFlagName("listen-addr"), ":18844"), "listen address for the web server")
	fs.StringVar(&srvOpts.publicURL, "public-url", defaultEnv(envFlagName("public-url"), "http://localhost:18844"), "url for the server, used in the curl usage string")
	fs.StringVar(&srvOpts.dbFile, "db-file", defaultEnv(envFlagName("db-file"), "data/db.bolt"), "bolt database file; the cache if s3 flags are set, otherwise the permanent store")
	fs.StringVar(&srvOpts.s3Endpoint, "s3-endpoint", defaultEnv(envFlagName("s3-endpoint"), ""), "s3/minio endpoint; if empty, storage is bolt-only")
	fs.StringVar(&srvOpts.s3AccessKey, "s3-access-key", defaultEnv(envFlagName("s3-access-key"), ""), "s3 access key")
	fs.StringVar(&srvOpts.s3AccessSecret, "s3-access-secret", defaultEnv(envFlagName("s3-access-secret"), ""), "s3 access secret")
	fs.StringVar(&srvOpts.s3Bucket, "s3-bucket", defaultEnv(envFlagName("s3-bucket"), "chunkdiff"), "s3 bucket for permanent storage")
	cacheDefault := defaultEnv(envFlagName("max-cache-bytes"), "268435456") // 256MiB
	cacheBytes, _ := strconv.ParseUint(cacheDefault, 10, 64)
	fs.Uint64Var(&srvOpts.maxCacheBytes, "max-cache-bytes", cacheBytes, "max size of the bolt-backed cache fronting s3 storage")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	boltDB, err := bbolt.Open(srvOpts.dbFile, 0o600, nil)
	if err != nil {
		return fmt.Errorf("open db %s: %w", srvOpts.dbFile, err)
	}

	store, err := buildStorage(boltDB)
	if err != nil {
		return err
	}

	srv := &httpserver.Server{
		PublicURL: srvOpts.publicURL,
		Storage:   store,
		DB:        &db.DB{DB: boltDB},
		Output:    os.Stdout,
	}

	fmt.Fprintln(os.Stdout, "listening on", srvOpts.listenAddr)
	return http.ListenAndServe(srvOpts.listenAddr, srv.Router())
}

// buildStorage mirrors the teacher's main.go storage selection: bolt-only
// when no s3 endpoint is configured, otherwise a bolt-backed cache in
// front of minio permanent storage.
func buildStorage(boltDB *bbolt.DB) (storage.Storage, error) {
	if srvOpts.s3Endpoint == "" {
		return storage.NewDBStorage(boltDB, []byte("blobs")), nil
	}

	cl, err := minio.New(srvOpts.s3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(srvOpts.s3AccessKey, srvOpts.s3AccessSecret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client init: %w", err)
	}
	permanent := storage.NewMinioStorage(cl, srvOpts.s3Bucket)
	cache := storage.NewDBStorage(boltDB, []byte("cache")).(storage.ListStorage)
	return storage.NewCachedStorage(cache, permanent, srvOpts.maxCacheBytes)
}
