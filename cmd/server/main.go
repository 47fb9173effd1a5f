package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mailledger/backend/internal/auth"
	"github.com/mailledger/backend/internal/extract"
	"github.com/mailledger/backend/internal/httpserver"
	"github.com/mailledger/backend/internal/mailbox"
	"github.com/mailledger/backend/internal/service"
	"github.com/mailledger/backend/internal/store"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8111"
	}

	ctx := context.Background()

	useMemoryStore := os.Getenv("USE_MEMORY_STORE") == "true" || os.Getenv("ENV") == "local"
	skipAuth := os.Getenv("SKIP_AUTH") == "true"

	var storeImpl store.Store
	var firebaseAuth *auth.FirebaseAuth

	if useMemoryStore {
		log.Info().Msg("using in-memory store for local development")
		storeImpl = store.NewMemoryStore()
		// Local development with the memory store always uses mock
		// authentication so no Firebase setup is needed.
		skipAuth = true
	} else {
		projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
		if projectID == "" {
			log.Fatal().Msg("GOOGLE_CLOUD_PROJECT is required outside local mode")
		}

		firestoreClient, err := firestore.NewClient(ctx, projectID)
		if err != nil {
			log.Fatal().Err(err).Msg("create Firestore client")
		}
		defer firestoreClient.Close()

		if skipAuth {
			log.Warn().Msg("SKIP_AUTH enabled, using mock authentication with Firestore (for seeding/testing only)")
		} else {
			firebaseAuth, err = auth.NewFirebaseAuth(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("initialize Firebase Auth")
			}
		}

		storeImpl = store.NewFirestoreStore(firestoreClient)
	}

	provider, err := newMailProvider(log)
	if err != nil {
		log.Fatal().Err(err).Msg("configure mail provider")
	}

	defaultCurrency := os.Getenv("DEFAULT_CURRENCY")
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	extractor := extract.New(defaultCurrency)

	svc := service.NewSyncService(storeImpl, storeImpl, provider, extractor, log)
	server := httpserver.New(svc, log)

	var handler http.Handler = server.Routes()
	handler = httpserver.RequestLogger(log)(handler)
	handler = httpserver.Recoverer(log)(handler)
	if skipAuth || firebaseAuth == nil {
		handler = auth.DebugMiddleware()(handler)
	} else {
		handler = auth.Middleware(firebaseAuth)(handler)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins(),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"User-Agent",
			"X-Debug-Impersonate-User",
		},
		AllowCredentials: true,
	})
	handler = c.Handler(handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	log.Info().Str("port", port).Msg("starting server")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// newMailProvider builds the Gmail provider from the OAuth client
// credentials file. Without credentials the server still runs, but sync
// operations report the mailbox as disconnected.
func newMailProvider(log zerolog.Logger) (mailbox.Provider, error) {
	credsFile := os.Getenv("GMAIL_CREDENTIALS_FILE")
	if credsFile == "" {
		credsFile = "credentials.json"
	}
	credsJSON, err := os.ReadFile(credsFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", credsFile).Msg("no Gmail credentials, mailbox sync disabled")
			return mailbox.Disabled{}, nil
		}
		return nil, err
	}

	redirectURL := os.Getenv("OAUTH_REDIRECT_URL")
	if redirectURL == "" {
		redirectURL = "http://localhost:1234/connect/callback"
	}
	return mailbox.NewGmailProvider(credsJSON, redirectURL)
}

func corsOrigins() []string {
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		return []string{extra, "http://localhost:1234", "http://127.0.0.1:1234"}
	}
	return []string{
		"http://localhost:1234",
		"http://127.0.0.1:1234",
	}
}
