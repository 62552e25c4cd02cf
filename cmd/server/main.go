package main

import (
	"context"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campus-store/internal/cache"
	"campus-store/internal/config"
	"campus-store/internal/controller"
	"campus-store/internal/middleware"
	"campus-store/internal/mpesa"
	"campus-store/internal/rabbit"
	"campus-store/internal/repository"
	"campus-store/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func main() {
	cfg := config.Load()

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Error conectando a MongoDB")
	}
	db := client.Database(cfg.MongoDBName)

	// Repositorios
	orderRepo := repository.NewMongoOrderRepository(db)
	reviewRepo := repository.NewMongoReviewRepository(db)
	productRepo := repository.NewMongoProductRepository(db)
	if err := reviewRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Error creando índices de reviews")
	}

	// Redis es opcional: sin él no hay caché de token ni idempotencia del checkout
	var tokenCache mpesa.TokenCache
	var guard service.CheckoutGuard
	if cfg.RedisAddr != "" {
		store := cache.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		tokenCache = store
		guard = store
	}

	// RabbitMQ también es opcional
	var publisher service.EventPublisher
	var ch *amqp091.Channel
	if cfg.RabbitURL != "" {
		conn, err := amqp091.Dial(cfg.RabbitURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error conectando a RabbitMQ")
		}
		ch, err = conn.Channel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Error creando canal en RabbitMQ")
		}
		pub, err := rabbit.NewPublisher(ch)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error declarando exchange order_paid")
		}
		publisher = pub
	}

	// Servicios
	signer := mpesa.NewCallbackSigner(cfg.CallbackSecret)
	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		Shortcode:      cfg.Mpesa.Shortcode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
	}, tokenCache, signer)

	orderService := service.NewOrderService(orderRepo, productRepo, publisher, cfg.DeliveryFee)
	paymentService := service.NewPaymentService(orderService, orderRepo, gateway, guard, signer)
	reviewService := service.NewReviewService(reviewRepo, orderService)
	authService := service.NewAuthService(cfg.AuthURL)

	if ch != nil {
		rabbit.SetupConsumers(ch, orderService)
	}

	limiter := middleware.NewIPRateLimiter(cfg.CallbackRateLimit, cfg.CallbackRateBurst)
	if err := limiter.Exempt(cfg.CallbackTrustedCIDRs...); err != nil {
		logger.Fatal().Err(err).Msg("Error en MPESA_CALLBACK_CIDRS")
	}
	go func() {
		for range time.Tick(time.Minute) {
			limiter.Cleanup(5 * time.Minute)
		}
	}()

	r := newRouter(routerDeps{
		orders:   controller.NewOrderController(orderService, paymentService),
		payments: controller.NewPaymentController(paymentService),
		reviews:  controller.NewReviewController(reviewService),
		auth:     authService,
		limiter:  limiter,
	})

	// Ejecutar servidor
	logger.Info().Str("port", cfg.Port).Msg("Campus store ejecutándose")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("Error en el servidor")
	}
}
