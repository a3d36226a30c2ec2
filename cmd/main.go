package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vhvplatform/go-reminder-service/internal/channels"
	"github.com/vhvplatform/go-reminder-service/internal/consumer"
	"github.com/vhvplatform/go-reminder-service/internal/handler"
	"github.com/vhvplatform/go-reminder-service/internal/middleware"
	"github.com/vhvplatform/go-reminder-service/internal/publisher"
	"github.com/vhvplatform/go-reminder-service/internal/repository"
	"github.com/vhvplatform/go-reminder-service/internal/scheduler"
	"github.com/vhvplatform/go-reminder-service/internal/service"
	"github.com/vhvplatform/go-reminder-service/internal/shared/config"
	"github.com/vhvplatform/go-reminder-service/internal/shared/logger"
	"github.com/vhvplatform/go-reminder-service/internal/shared/mongodb"
	"github.com/vhvplatform/go-reminder-service/internal/shared/rabbitmq"
)

func main() {
	// Initialize logger
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting Reminder Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}

	// Initialize MongoDB
	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	// Initialize RabbitMQ. The broker is optional: without it outcome
	// events and account sync are disabled but the pipeline still runs.
	rabbitMQClient, err := rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ, events disabled", "error", err)
		rabbitMQClient = nil
	} else {
		defer rabbitMQClient.Close()
	}

	// Initialize repositories
	itemRepo := repository.NewItemRepository(mongoClient)
	reminderRepo := repository.NewReminderRepository(mongoClient)
	taskRepo := repository.NewTaskRepository(mongoClient)
	preferencesRepo := repository.NewPreferencesRepository(mongoClient)
	deviceTokenRepo := repository.NewDeviceTokenRepository(mongoClient)
	attemptRepo := repository.NewAttemptRepository(mongoClient)

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelIndexes()
	if err := itemRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal("Failed to create item indexes", "error", err)
	}
	if err := reminderRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal("Failed to create reminder indexes", "error", err)
	}
	if err := taskRepo.EnsureIndexes(indexCtx); err != nil {
		log.Fatal("Failed to create task indexes", "error", err)
	}

	// Initialize channel adapters
	emailAdapter := channels.NewEmailAdapter(channels.EmailConfig{
		SMTPHost:     cfg.SMTP.Host,
		SMTPPort:     cfg.SMTP.Port,
		SMTPUsername: cfg.SMTP.Username,
		SMTPPassword: cfg.SMTP.Password,
		FromEmail:    cfg.SMTP.FromEmail,
		FromName:     cfg.SMTP.FromName,
	})
	twilioAdapter := channels.NewTwilioAdapter(channels.TwilioConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.FromNumber,
		BaseURL:    cfg.Twilio.BaseURL,
	})
	pushAdapter := channels.NewPushAdapter(channels.PushConfig{
		ProjectID:   cfg.FCM.ProjectID,
		AccessToken: cfg.FCM.AccessToken,
		BaseURL:     cfg.FCM.BaseURL,
	})

	// Initialize outcome publisher
	var outcomePublisher service.OutcomePublisher
	if rabbitMQClient != nil {
		p, err := publisher.NewOutcomePublisher(rabbitMQClient, log)
		if err != nil {
			log.Warn("Failed to initialize outcome publisher", "error", err)
		} else {
			outcomePublisher = p
		}
	}

	// Initialize the dispatch pipeline
	evaluator := service.NewScheduleEvaluator()
	builder := service.NewNotificationBuilder(preferencesRepo, taskRepo, reminderRepo, log)
	dispatcher := service.NewDeliveryDispatcher(
		emailAdapter,
		channels.NewSMSSender(twilioAdapter),
		channels.NewWhatsAppSender(twilioAdapter),
		pushAdapter,
		preferencesRepo,
		deviceTokenRepo,
		taskRepo,
		attemptRepo,
		outcomePublisher,
		service.DispatcherConfig{
			Workers:      cfg.Dispatch.Workers,
			SendTimeout:  cfg.Dispatch.SendTimeout,
			Policy:       cfg.Dispatch.Policy,
			ChannelRPS:   cfg.Dispatch.ChannelRPS,
			ChannelBurst: cfg.Dispatch.ChannelBurst,
			PushTitle:    cfg.FCM.Title,
		},
		log,
	)
	cycleService := service.NewCycleService(reminderRepo, itemRepo, evaluator, builder, dispatcher, log)

	// Initialize scheduler
	cycleScheduler := scheduler.NewCycleScheduler(cycleService, cfg.Dispatch.CronSpec, log)
	if err := cycleScheduler.Start(); err != nil {
		log.Fatal("Failed to start cycle scheduler", "error", err)
	}
	defer cycleScheduler.Stop()

	// Initialize HTTP handlers
	itemHandler := handler.NewItemHandler(itemRepo, reminderRepo, log)
	reminderHandler := handler.NewReminderHandler(reminderRepo, itemRepo, log)
	preferencesHandler := handler.NewPreferencesHandler(preferencesRepo, deviceTokenRepo, log)
	taskHandler := handler.NewTaskHandler(taskRepo, attemptRepo, log)
	cycleHandler := handler.NewCycleHandler(cycleService, log)

	// Initialize rate limiter
	rateLimiter := middleware.NewUserRateLimiter(cfg.Dispatch.RateLimitRPS, cfg.Dispatch.RateLimitBurst)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with rate limiting
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		// Items
		items := v1.Group("/items")
		{
			items.POST("", itemHandler.CreateItem)
			items.GET("", itemHandler.ListItems)
			items.GET("/:id", itemHandler.GetItem)
			items.PUT("/:id", itemHandler.UpdateItem)
			items.DELETE("/:id", itemHandler.DeleteItem)
			items.POST("/:id/share", itemHandler.ShareItem)
			items.DELETE("/:id/share/:profile_id", itemHandler.UnshareItem)
		}

		// Reminder rules
		reminders := v1.Group("/reminders")
		{
			reminders.POST("", reminderHandler.CreateReminder)
			reminders.GET("", reminderHandler.ListReminders)
			reminders.GET("/:id", reminderHandler.GetReminder)
			reminders.DELETE("/:id", reminderHandler.DeleteReminder)
		}

		// Preferences and push devices
		preferences := v1.Group("/preferences")
		{
			preferences.GET("/:user_id", preferencesHandler.GetPreferences)
			preferences.PUT("/:user_id", preferencesHandler.UpdatePreferences)
			preferences.GET("/:user_id/devices", preferencesHandler.ListDevices)
			preferences.DELETE("/:user_id/devices/:token", preferencesHandler.DeleteDevice)
		}
		v1.POST("/devices", preferencesHandler.RegisterDevice)

		// Notification task history
		tasks := v1.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/:id/attempts", taskHandler.GetTaskAttempts)
		}

		// On-demand dispatch cycle
		v1.POST("/cycles/run", cycleHandler.RunCycle)
	}

	// Start RabbitMQ consumer
	if rabbitMQClient != nil {
		accountConsumer := consumer.NewAccountConsumer(rabbitMQClient, preferencesRepo, deviceTokenRepo, log)
		go func() {
			if err := accountConsumer.Start(); err != nil {
				log.Error("Failed to start account consumer", "error", err)
			}
		}()
	}

	// Start HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Reminder Service started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Reminder Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Reminder Service stopped")
}
