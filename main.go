package main

import (
	"context"
	"log"
	"os"
	"strings"

	"volna/api"
	"volna/audio"
	"volna/cache"
	"volna/classify"
	"volna/common"
	"volna/config"
	"volna/discovery"
	"volna/events"
	"volna/pipeline"
	"volna/sources"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	classifier, err := classify.New()
	if err != nil {
		log.Fatalf("Classifier rules invalid: %v", err)
	}

	c := cache.NewWithRedis(os.Getenv("REDIS_ADDR"), os.Getenv("REDIS_PASS"))
	registry := sources.Default()
	coordinator := discovery.NewCoordinator(registry, c, classifier)

	// Optional side channels: both come up only when their env is present,
	// and neither is allowed to take the service down.
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		s3c, err := common.NewS3(context.Background(), common.S3Config{
			Region:       os.Getenv("S3_REGION"),
			Profile:      os.Getenv("S3_PROFILE"),
			UsePathStyle: os.Getenv("S3_USE_PATH_STYLE") == "true",
		})
		if err != nil {
			log.Printf("Warning: S3 snapshots disabled: %v", err)
		} else {
			coordinator.Snapshots = discovery.NewSnapshotter(s3c, bucket, os.Getenv("S3_PREFIX"))
			log.Printf("Snapshots: enabled (bucket %s)", bucket)
		}
	} else {
		log.Println("Snapshots: disabled (S3_BUCKET not set)")
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		pub, err := events.NewPublisher(strings.Split(brokers, ","), config.DiscoveredTopic)
		if err != nil {
			log.Printf("Warning: Kafka publishing disabled: %v", err)
		} else {
			coordinator.Publisher = pub
			defer pub.Close()
			log.Printf("Kafka: publishing fresh batches to %s", config.DiscoveredTopic)
		}
	} else {
		log.Println("Kafka: disabled (KAFKA_BROKERS not set)")
	}

	p := pipeline.New(registry, c, classifier, coordinator, audio.NewExtractor())
	r := api.NewRouter(p)

	port := getEnvOrDefault("PORT", "8080")
	log.Printf("Sources: %s", strings.Join(registry.Sites(), ", "))
	log.Println("Endpoints:")
	log.Println("  GET /api/health")
	log.Println("  GET /api/discover?sources=<csv>&max=<n>[&nocache=true]")
	log.Println("  GET /api/scrape?url=<item url>[&nocache=true]")
	log.Println("  GET /api/audio?url=<item url>")
	log.Printf("Listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
