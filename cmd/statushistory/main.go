package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"campusfix-be/config"
	"campusfix-be/messaging"
	"campusfix-be/models"
	"campusfix-be/statushistory"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	if cfg.RabbitMQURL == "" {
		log.Fatal("RABBITMQ_URL is required for the status history recorder")
	}

	db, err := config.ConnectDB(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer config.DisconnectDB(db)

	if err := models.EnsureIndexes(db); err != nil {
		log.Printf("statushistory: ensure indexes: %v", err)
	}

	rmq, err := messaging.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rmq.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := statushistory.NewRecorder(statushistory.NewMongoWriter(db))
	log.Printf("statushistory: consuming %s", messaging.StatusHistoryQueue)

	for ctx.Err() == nil {
		msgs, err := rmq.Consume(messaging.StatusHistoryQueue)
		if err != nil {
			log.Printf("statushistory: consume: %v, retrying in 5s...", err)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}
		recorder.Run(ctx, msgs)
	}
	log.Println("statushistory: stopped")
}
