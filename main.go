package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amgst/vancegraphix.com.au-sub000/config"
	"github.com/amgst/vancegraphix.com.au-sub000/core"
	"github.com/amgst/vancegraphix.com.au-sub000/gallery"
	"github.com/amgst/vancegraphix.com.au-sub000/google"
	"github.com/amgst/vancegraphix.com.au-sub000/handlers/api/drive"
	"github.com/amgst/vancegraphix.com.au-sub000/handlers/api/galleries"
	"github.com/amgst/vancegraphix.com.au-sub000/handlers/api/items"
	"github.com/amgst/vancegraphix.com.au-sub000/handlers/api/places"
	"github.com/amgst/vancegraphix.com.au-sub000/handlers/auth"
	"github.com/amgst/vancegraphix.com.au-sub000/handlers/websocket"
	appMiddleware "github.com/amgst/vancegraphix.com.au-sub000/middleware"
	"github.com/amgst/vancegraphix.com.au-sub000/sources"
	"github.com/amgst/vancegraphix.com.au-sub000/stores"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// server bundles everything the router needs.
type server struct {
	cfg      *config.Config
	store    core.ItemStore
	places   places.ReviewsFetcher
	drive    sources.ImageLister
	notifier items.Notifier
	metrics  *prometheus.Registry
}

func (s *server) galleries() galleries.Registry {
	return galleries.Registry{
		"portfolio": {
			Source:  sources.StoreSource{Store: s.store, Collection: s.cfg.PortfolioCollection},
			Options: gallery.Options{HonorFeatured: true},
		},
		"print": {
			Source:  sources.DriveSource{Drive: s.drive, Categories: s.cfg.PrintCategories},
			Options: gallery.Options{Categories: s.cfg.CategoryNames()},
			Covers: func(ctx context.Context) []sources.Cover {
				return sources.Covers(ctx, s.drive, s.cfg.PrintCategories)
			},
		},
	}
}

func (s *server) publishedFolders() []string {
	folders := make([]string, 0, len(s.cfg.PrintCategories))
	for _, c := range s.cfg.PrintCategories {
		if c.FolderID != "" {
			folders = append(folders, c.FolderID)
		}
	}
	return folders
}

func setupRouter(s *server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appMiddleware.NewHTTPMetrics(s.metrics).Handler)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		reg := s.galleries()
		r.Route("/gallery/{gallery}", func(r chi.Router) {
			r.Get("/", galleries.HandleView(reg))
			r.Get("/items", galleries.HandleItems(reg))
			r.Get("/covers", galleries.HandleCovers(reg))
		})

		r.Get("/places/reviews", places.HandleReviews(s.places))
		r.Get("/drive/images", drive.HandleImages(s.drive, s.publishedFolders()))

		r.Route("/collections/{collection}/items", func(r chi.Router) {
			r.Use(appMiddleware.AuthJWT)
			r.Use(appMiddleware.RequireAdmin(s.cfg.Auth.Admins))
			r.Get("/", items.HandleList(s.store))
			r.Post("/", items.HandleCreate(s.store, s.notifier))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", items.HandleGet(s.store))
				r.Put("/", items.HandlePut(s.store, s.notifier))
				r.Delete("/", items.HandleDelete(s.store, s.notifier))
			})
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", auth.HandleLogin)
		r.Get("/callback", auth.HandleCallback)
	})

	return r
}

func waitForShutdown(srv *http.Server, hub *websocket.Hub, store core.ItemStore) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signals
	logrus.WithField("signal", s.String()).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	hub.Close()
	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close store")
		}
	}
}

func main() {
	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	auth.InitAuth(cfg.Auth)
	if len(cfg.Auth.Admins) == 0 {
		logrus.Warn("ADMIN_USERS is empty, item writes are disabled")
	}
	store := stores.GetStore(cfg.Storage)

	client := google.NewClient(cfg.Google.RequestsPerSecond)
	hub := websocket.NewHub(cfg.AllowedOrigins)

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "live_refresh_rooms",
			Help: "Collections with at least one live refresh client.",
		}, func() float64 { return float64(len(hub.ActiveRooms())) }),
	)

	r := setupRouter(&server{
		cfg:      cfg,
		store:    store,
		places:   google.NewPlaces(client, cfg.Google.PlacesAPIKey, cfg.Google.PlacesBaseURL, cfg.Google.PlaceID),
		drive:    google.NewDrive(client, cfg.Google.DriveAPIKey, cfg.Google.DriveBaseURL),
		notifier: hub,
		metrics:  metrics,
	})
	r.Mount("/socket.io/", hub.Server().ServeHandler(nil))

	srv := &http.Server{Addr: *listenAddress, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	waitForShutdown(srv, hub, store)
}
