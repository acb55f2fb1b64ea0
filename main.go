package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelhub_back/authorization"
	"modelhub_back/catalog"
	"modelhub_back/metrics"
	"modelhub_back/storage"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func corsMiddleware() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowHeaders = append(config.AllowHeaders, "Authorization")
	if origins := strings.TrimSpace(os.Getenv("CORS_ORIGIN")); origins != "" {
		config.AllowOrigins = strings.Split(origins, ",")
		config.AllowCredentials = true
	} else {
		config.AllowAllOrigins = true
	}
	return cors.New(config)
}

func main() {
	mustLoadEnv()

	r := gin.Default()
	r.Use(corsMiddleware())

	authModule, err := authorization.RegisterRoutes(r)
	if err != nil {
		log.Fatalf("register auth routes: %v", err)
	}

	backend, err := storage.NewBackendFromEnv()
	if err != nil {
		log.Fatalf("init storage backend: %v", err)
	}
	if local, ok := backend.(*storage.LocalBackend); ok {
		r.Static("/uploads", local.BaseDir())
	}

	collector := metrics.NewCollector()

	if _, err := catalog.RegisterRoutes(r, authModule.Guard(), backend, collector); err != nil {
		log.Fatalf("register catalog routes: %v", err)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Backend API is running!")
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
