package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"parkspot/internal/api"
	"parkspot/internal/auth"
	"parkspot/internal/repository"
	"parkspot/internal/service"
)

func main() {
	godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	database, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	policy := service.DefaultBookingPolicy()
	if ttl := os.Getenv("PENDING_PAYMENT_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			log.Fatalf("Invalid PENDING_PAYMENT_TTL: %v", err)
		}
		policy.PendingPaymentTTL = d
	}
	if cutoff := os.Getenv("CANCELLATION_CUTOFF"); cutoff != "" {
		d, err := time.ParseDuration(cutoff)
		if err != nil {
			log.Fatalf("Invalid CANCELLATION_CUTOFF: %v", err)
		}
		policy.CancellationCutoff = d
	}

	reservationRepo := repository.NewReservationRepository(database)
	spotRepo := repository.NewSpotRepository(database)
	jobRepo := repository.NewJobRepository(database)
	adminAuthRepo := repository.NewAdminAuthRepository(database)

	clock := service.RealClock{}
	admissionSvc := service.NewAdmissionService(reservationRepo, spotRepo)
	lifecycleSvc := service.NewLifecycleService(reservationRepo, policy, clock)
	stripeSvc := service.NewStripeService()
	senderSvc := service.NewSenderService()
	bookingSvc := service.NewBookingService(admissionSvc, lifecycleSvc, reservationRepo, stripeSvc, senderSvc)
	jobSvc := service.NewJobService(jobRepo, lifecycleSvc, clock)
	adminAuthSvc := service.NewAdminAuthService(adminAuthRepo)

	bookingHandler := api.NewBookingHandler(bookingSvc, admissionSvc)
	spotHandler := api.NewSpotHandler(spotRepo)
	adminHandler := api.NewAdminHandler(bookingSvc, reservationRepo)
	adminAuthHandler := api.NewAdminAuthHandler(adminAuthSvc)
	webhookHandler := api.NewStripeWebhookHandler(os.Getenv("STRIPE_WEBHOOK_SECRET"), bookingSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/availability", bookingHandler.CheckAvailability).Methods("POST")
	r.HandleFunc("/api/spots/{id}", spotHandler.GetSpot).Methods("GET")
	r.HandleFunc("/webhooks/stripe", webhookHandler.HandleWebhook).Methods("POST")
	r.HandleFunc("/admin/login", adminAuthHandler.Login).Methods("POST")

	// Identified endpoints (JWT from the identity provider)
	user := r.PathPrefix("/api").Subrouter()
	user.Use(auth.Middleware)
	user.HandleFunc("/bookings", bookingHandler.CreateBooking).Methods("POST")
	user.HandleFunc("/bookings", bookingHandler.ListBookings).Methods("GET")
	user.HandleFunc("/bookings/{code}", bookingHandler.GetBooking).Methods("GET")
	user.HandleFunc("/bookings/{code}", bookingHandler.CancelBooking).Methods("DELETE")
	user.HandleFunc("/spots", spotHandler.CreateSpot).Methods("POST")
	user.HandleFunc("/spots", spotHandler.ListMySpots).Methods("GET")
	user.HandleFunc("/spots/{id}/availability", spotHandler.SetAvailability).Methods("PUT")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Middleware, auth.RequireRole(auth.RoleAdmin))
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods("GET")
	admin.HandleFunc("/reservations/{id}", adminHandler.CancelReservation).Methods("DELETE")
	admin.HandleFunc("/users", adminAuthHandler.CreateAdmin).Methods("POST")

	// Time-driven lifecycle transitions: the scheduler is external to the
	// core, the sweeps just apply the state machine.
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", jobSvc.RunSweep); err != nil {
		log.Fatalf("Failed to schedule lifecycle sweep: %v", err)
	}
	c.Start()
	defer c.Stop()

	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"Content-Type", "Authorization"})
	handler := handlers.CombinedLoggingHandler(os.Stdout,
		handlers.CORS(corsOrigins, corsMethods, corsHeaders)(r))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
