package startup

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/AndyKimLi/cottage-booking/authorization"
	"github.com/AndyKimLi/cottage-booking/bot"
	"github.com/AndyKimLi/cottage-booking/domain"
	"github.com/AndyKimLi/cottage-booking/handlers"
	application "github.com/AndyKimLi/cottage-booking/service"
	"github.com/AndyKimLi/cottage-booking/startup/config"
	"github.com/AndyKimLi/cottage-booking/store"
)

type Server struct {
	config *config.Config
}

var Logger = logrus.New()

const (
	LogFilePath = "/app/logs/booking.log"

	// completionSweepCycle is how often confirmed reservations with an
	// elapsed check-out are swept into completed.
	completionSweepCycle = time.Hour
)

type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	entry.Data["id"] = generateUniqueID()

	msg := fmt.Sprintf("[%s] [%s] [%s] %s\n",
		entry.Time.Format("2006-01-02T15:04:05Z07:00"),
		entry.Level,
		entry.Data["id"],
		entry.Message,
	)

	return []byte(msg), nil
}

func generateUniqueID() string {
	return fmt.Sprintf("ID-%d", time.Now().UnixNano())
}

func initLogger() {
	writer, err := rotatelogs.New(
		LogFilePath+"_%Y%m%d%H%M",
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		Logger.Fatalf("Failed to create rotatelogs hook: %v", err)
	}
	Logger.SetOutput(writer)

	Logger.SetFormatter(&CustomFormatter{})
}

func NewServer(config *config.Config) *Server {
	return &Server{
		config: config,
	}
}

func (server *Server) Start() {
	initLogger()

	ctx := context.Background()

	exp, err := newExporter(server.config.JaegerAddress)
	if err != nil {
		log.Fatalf("Failed to Initialize Exporter: %v", err)
	}

	tp := newTraceProvider(exp)
	defer func() { _ = tp.Shutdown(ctx) }()
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer("booking_service")
	otel.SetTextMapPropagator(propagation.TraceContext{})

	pool, err := store.GetPostgresClient(ctx, server.config.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	redisClient := store.GetRedisClient(server.config.RedisHost, server.config.RedisPort)

	storeLogger := log.New(os.Stdout, "[booking-store] ", log.LstdFlags)
	handlerLogger := log.New(os.Stdout, "[booking-api] ", log.LstdFlags)

	reservationStore := store.NewReservationPostgresStore(pool, tracer, storeLogger)
	reservationStore.CreateTables(ctx)
	cottageStore := store.NewCottagePostgresStore(pool, tracer, storeLogger)
	cottageStore.CreateTables(ctx)
	leadStore := store.NewLeadPostgresStore(pool, tracer, storeLogger)
	leadStore.CreateTables(ctx)
	paymentStore := store.NewPaymentPostgresStore(pool, tracer, storeLogger)
	paymentStore.CreateTables(ctx)
	subscriberStore := store.NewSubscriberPostgresStore(pool, tracer, storeLogger)
	subscriberStore.CreateTables(ctx)

	availabilityCache := store.NewAvailabilityRedisCache(redisClient, tracer)

	clock := domain.RealClock{}

	availability := application.NewAvailabilityChecker(reservationStore, availabilityCache, clock, tracer, Logger)
	dashboardService := application.NewDashboardService(reservationStore, clock, tracer, Logger)

	messenger, staffBot := server.initStaffBot(subscriberStore, dashboardService)

	notificationService := server.initNotificationService(subscriberStore, messenger, tracer)
	bookingService := application.NewBookingService(reservationStore, cottageStore, availability, notificationService, clock, tracer, Logger)
	leadService := application.NewLeadService(leadStore, cottageStore, notificationService, tracer, Logger)
	paymentService := application.NewPaymentService(paymentStore, reservationStore, tracer, Logger)

	reservationHandler := handlers.NewReservationHandler(handlerLogger, bookingService, availability, tracer)
	cottageHandler := handlers.NewCottageHandler(handlerLogger, cottageStore, tracer)
	leadHandler := handlers.NewLeadHandler(handlerLogger, leadService, tracer)
	paymentHandler := handlers.NewPaymentHandler(handlerLogger, paymentService, tracer)
	dashboardHandler := handlers.NewDashboardHandler(handlerLogger, dashboardService, tracer)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	if staffBot != nil {
		go staffBot.Run(runCtx)
	}
	go server.runCompletionSweep(runCtx, bookingService)

	server.start(reservationHandler, cottageHandler, leadHandler, paymentHandler, dashboardHandler)
}

func (server *Server) initStaffBot(subscribers domain.SubscriberStore, dashboard *application.DashboardService) (application.StaffMessenger, *bot.StaffBot) {
	if server.config.TelegramBotToken == "" {
		Logger.Warn("TELEGRAM_BOT_TOKEN not set, staff notifications disabled")
		return noopMessenger{}, nil
	}

	staffBot, err := bot.NewStaffBot(server.config.TelegramBotToken, subscribers, dashboard, Logger)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}
	return staffBot, staffBot
}

func (server *Server) initNotificationService(subscribers domain.SubscriberStore, messenger application.StaffMessenger, tracer trace.Tracer) *application.NotificationService {
	smtpPort, err := strconv.Atoi(server.config.SMTPPort)
	if err != nil {
		Logger.Warnf("Invalid SMTP port %q, confirmation mails disabled: %v", server.config.SMTPPort, err)
	}

	smtp := application.SMTPConfig{
		Server:   server.config.SMTPServer,
		Port:     smtpPort,
		Email:    server.config.SMTPEmail,
		Password: server.config.SMTPPassword,
	}

	return application.NewNotificationService(subscribers, messenger, smtp, tracer, Logger)
}

// runCompletionSweep periodically moves confirmed reservations whose stay
// has ended into completed.
func (server *Server) runCompletionSweep(ctx context.Context, booking *application.BookingService) {
	ticker := time.NewTicker(completionSweepCycle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := booking.CompleteElapsedReservations(ctx); err != nil {
				Logger.Errorf("Completion sweep failed: %v", err)
			}
		}
	}
}

func (server *Server) start(
	reservationHandler *handlers.ReservationHandler,
	cottageHandler *handlers.CottageHandler,
	leadHandler *handlers.LeadHandler,
	paymentHandler *handlers.PaymentHandler,
	dashboardHandler *handlers.DashboardHandler,
) {
	router := mux.NewRouter()
	router.Use(handlers.MiddlewareContentTypeSet)
	router.Use(handlers.ExtractTraceInfoMiddleware)

	createReservation := router.Methods(http.MethodPost).Path("/reservations").Subrouter()
	createReservation.HandleFunc("", reservationHandler.CreateReservation)
	createReservation.Use(reservationHandler.MiddlewareReservationDeserialization)

	editReservation := router.Methods(http.MethodPut).Path("/reservations/{id}").Subrouter()
	editReservation.HandleFunc("", reservationHandler.EditReservation)
	editReservation.Use(reservationHandler.MiddlewareEditDeserialization)

	router.HandleFunc("/reservations/user", reservationHandler.GetReservationsByUser).Methods(http.MethodGet)
	router.HandleFunc("/reservations/{id}", reservationHandler.GetReservation).Methods(http.MethodGet)
	router.HandleFunc("/reservations/{id}", reservationHandler.CancelReservation).Methods(http.MethodDelete)
	router.HandleFunc("/reservations/{id}/payment", paymentHandler.GetPaymentForReservation).Methods(http.MethodGet)

	router.HandleFunc("/cottages", cottageHandler.GetAllCottages).Methods(http.MethodGet)
	router.HandleFunc("/cottages/{id}", cottageHandler.GetCottage).Methods(http.MethodGet)
	router.HandleFunc("/cottages/{id}/availability", reservationHandler.CheckAvailability).Methods(http.MethodGet)
	router.HandleFunc("/cottages/{id}/occupied", reservationHandler.GetOccupiedDates).Methods(http.MethodGet)

	createCallback := router.Methods(http.MethodPost).Path("/callbacks").Subrouter()
	createCallback.HandleFunc("", leadHandler.CreateCallbackRequest)
	createCallback.Use(leadHandler.MiddlewareCallbackDeserialization)

	createPayment := router.Methods(http.MethodPost).Path("/payments").Subrouter()
	createPayment.HandleFunc("", paymentHandler.CreatePayment)
	createPayment.Use(paymentHandler.MiddlewarePaymentDeserialization)

	router.HandleFunc("/payments/{id}/status", paymentHandler.ChangePaymentStatus).Methods(http.MethodPatch)

	staff := router.PathPrefix("/staff").Subrouter()
	staff.Use(authorization.StaffOnly)

	instantReservation := staff.Methods(http.MethodPost).Path("/reservations").Subrouter()
	instantReservation.HandleFunc("", reservationHandler.CreateInstantReservation)
	instantReservation.Use(reservationHandler.MiddlewareReservationDeserialization)

	changeStatus := staff.Methods(http.MethodPatch).Path("/reservations/{id}/status").Subrouter()
	changeStatus.HandleFunc("", reservationHandler.ChangeStatus)
	changeStatus.Use(reservationHandler.MiddlewareStatusDeserialization)

	staff.HandleFunc("/reservations", dashboardHandler.SearchReservations).Methods(http.MethodGet)
	staff.HandleFunc("/reservations/recent", dashboardHandler.GetRecentReservations).Methods(http.MethodGet)
	staff.HandleFunc("/stats", dashboardHandler.GetStats).Methods(http.MethodGet)
	staff.HandleFunc("/callbacks", leadHandler.GetAllCallbackRequests).Methods(http.MethodGet)
	staff.HandleFunc("/callbacks/{id}/status", leadHandler.ChangeCallbackStatus).Methods(http.MethodPatch)

	createCottage := staff.Methods(http.MethodPost).Path("/cottages").Subrouter()
	createCottage.HandleFunc("", cottageHandler.CreateCottage)
	createCottage.Use(cottageHandler.MiddlewareCottageDeserialization)

	updateCottage := staff.Methods(http.MethodPut).Path("/cottages/{id}").Subrouter()
	updateCottage.HandleFunc("", cottageHandler.UpdateCottage)
	updateCottage.Use(cottageHandler.MiddlewareCottageDeserialization)

	staff.HandleFunc("/cottages/{id}", cottageHandler.DeactivateCottage).Methods(http.MethodDelete)

	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", server.config.Port),
		Handler: cors(router),
	}

	wait := time.Second * 15
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Println(err)
		}
	}()

	c := make(chan os.Signal, 1)

	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	<-c

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Error Shutting Down Server %s", err)
	}
	log.Println("Server Gracefully Stopped")
}

// noopMessenger swallows staff messages when no bot token is configured.
type noopMessenger struct{}

func (noopMessenger) SendMessage(chatID int64, text string) error {
	return nil
}

func newExporter(address string) (*jaeger.Exporter, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(address)))
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func newTraceProvider(exp sdktrace.SpanExporter) *sdktrace.TracerProvider {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("booking_service"),
		),
	)

	if err != nil {
		panic(err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	)
}
